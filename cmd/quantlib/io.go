package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/meenmo/quantlib/internal/config"
)

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path != "" {
		return os.ReadFile(path)
	}
	return io.ReadAll(stdin)
}

// parseInputs accepts a single JSON object or a non-empty array of them.
func parseInputs[I any](raw []byte) ([]I, bool, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, false, fmt.Errorf("empty input")
	}
	if trimmed[0] == '[' {
		var inputs []I
		if err := json.Unmarshal(trimmed, &inputs); err != nil {
			return nil, true, err
		}
		if len(inputs) == 0 {
			return nil, true, fmt.Errorf("empty input array")
		}
		return inputs, true, nil
	}
	var input I
	if err := json.Unmarshal(trimmed, &input); err != nil {
		return nil, false, err
	}
	return []I{input}, false, nil
}

// runBatch evaluates process on every input and writes the results in input
// order. failed builds the output reported for an input that errored.
func runBatch[I, O any](a *app, cmd *cobra.Command, process func(I) (O, error), failed func(I, error) O) error {
	raw, err := readInput(a.inputPath, cmd.InOrStdin())
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	inputs, isArray, err := parseInputs[I](raw)
	if err != nil {
		return fmt.Errorf("parse JSON: %w", err)
	}

	logger := a.logger.With(zap.String("command", cmd.Name()))
	start := time.Now()

	hadError := false
	outputs := make([]O, 0, len(inputs))
	for i, in := range inputs {
		out, err := process(in)
		if err != nil {
			hadError = true
			logger.Warn("input failed", zap.Int("index", i), zap.Error(err))
			outputs = append(outputs, failed(in, err))
			continue
		}
		outputs = append(outputs, out)
	}
	logger.Info("batch complete",
		zap.Int("inputs", len(inputs)),
		zap.Bool("had_error", hadError),
		zap.Duration("elapsed", time.Since(start)),
	)

	var payload any = outputs
	if !isArray {
		payload = outputs[0]
	}
	if err := writeOutput(cmd.OutOrStdout(), a.cfg.Output, payload); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	if hadError {
		return errBatchFailed
	}
	return nil
}

// writeOutput renders v as JSON, or as block-style YAML with the JSON field
// names and order.
func writeOutput(w io.Writer, cfg config.OutputConfig, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	if cfg.Format == "yaml" {
		var node yaml.Node
		if err := yaml.Unmarshal(b, &node); err != nil {
			return err
		}
		blockStyle(&node)
		enc := yaml.NewEncoder(w)
		enc.SetIndent(max(cfg.Indent, 2))
		if err := enc.Encode(&node); err != nil {
			return err
		}
		return enc.Close()
	}

	if cfg.Indent > 0 {
		var buf bytes.Buffer
		if err := json.Indent(&buf, b, "", fmt.Sprintf("%*s", cfg.Indent, "")); err != nil {
			return err
		}
		b = buf.Bytes()
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func blockStyle(n *yaml.Node) {
	n.Style &^= yaml.FlowStyle
	if n.Kind == yaml.ScalarNode && n.Tag == "!!str" {
		n.Style &^= yaml.DoubleQuotedStyle
	}
	for _, c := range n.Content {
		blockStyle(c)
	}
}

func parseDate(field, s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s: %v", field, err)
	}
	return t, nil
}
