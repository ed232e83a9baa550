package providers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/chzyer/readline"

	"github.com/start-out/starter/pkg/schema"
)

// Stringify renders a typed init option value the way the variable store
// and child process environments expect it.
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	}
	return fmt.Sprintf("%v", v)
}

// Coerce parses a raw answer according to the option kind and returns the
// stringified value. An error means the answer does not parse as the kind.
func Coerce(raw string, kind schema.OptionType) (string, error) {
	raw = strings.TrimSpace(raw)
	switch kind {
	case schema.TypeBool:
		switch strings.ToLower(raw) {
		case "y", "yes", "true", "1":
			return "true", nil
		case "n", "no", "false", "0":
			return "false", nil
		}
		return "", fmt.Errorf("%q is not a yes/no answer", raw)
	case schema.TypeInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return "", fmt.Errorf("%q is not an integer", raw)
		}
		return strconv.FormatInt(n, 10), nil
	case schema.TypeFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return "", fmt.Errorf("%q is not a number", raw)
		}
		return strconv.FormatFloat(f, 'g', -1, 64), nil
	}
	return raw, nil
}

// InteractiveCollector prompts on the terminal via readline. A mutex
// serializes prompts so concurrent waves never interleave two questions.
type InteractiveCollector struct {
	mu sync.Mutex
}

func (c *InteractiveCollector) Ask(ctx context.Context, opt schema.InitOption, promptText string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	def := Stringify(opt.Default)
	label := promptText
	if def != "" {
		label = fmt.Sprintf("%s [%s]", promptText, def)
	}

	rl, err := readline.New(label + ": ")
	if err != nil {
		return "", fmt.Errorf("init readline: %w", err)
	}
	defer rl.Close()

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		line, err := rl.Readline()
		if err != nil {
			return "", fmt.Errorf("read answer for %s: %w", opt.EnvName, err)
		}
		if strings.TrimSpace(line) == "" {
			line = def
		}
		value, err := Coerce(line, opt.Kind())
		if err != nil {
			fmt.Fprintf(rl.Stderr(), "%v, try again\n", err)
			continue
		}
		return value, nil
	}
}

func (c *InteractiveCollector) Confirm(ctx context.Context, question string, def bool) (bool, error) {
	hint := "y/N"
	if def {
		hint = "Y/n"
	}
	answer, err := c.Ask(ctx, schema.InitOption{
		EnvName: "confirm",
		Default: def,
		Type:    schema.TypeBool,
	}, fmt.Sprintf("%s (%s)", question, hint))
	if err != nil {
		return false, err
	}
	return answer == "true", nil
}

// DryRunCollector answers every prompt with its default without touching
// the terminal, and declines every confirmation.
type DryRunCollector struct{}

func (DryRunCollector) Ask(_ context.Context, opt schema.InitOption, _ string) (string, error) {
	return Coerce(Stringify(opt.Default), opt.Kind())
}

func (DryRunCollector) Confirm(_ context.Context, _ string, _ bool) (bool, error) {
	return false, nil
}

// StaticCollector serves answers from a fixed map, falling back to
// defaults. Used by tests and by --var / --yes flag wiring.
type StaticCollector struct {
	Answers  map[string]string
	Confirms bool

	mu    sync.Mutex
	asked []string
}

func (c *StaticCollector) Ask(_ context.Context, opt schema.InitOption, _ string) (string, error) {
	c.mu.Lock()
	c.asked = append(c.asked, opt.EnvName)
	c.mu.Unlock()
	if raw, ok := c.Answers[opt.EnvName]; ok {
		return Coerce(raw, opt.Kind())
	}
	return Coerce(Stringify(opt.Default), opt.Kind())
}

func (c *StaticCollector) Confirm(_ context.Context, _ string, _ bool) (bool, error) {
	return c.Confirms, nil
}

// Asked returns the env names prompted for, in order.
func (c *StaticCollector) Asked() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.asked))
	copy(out, c.asked)
	return out
}
