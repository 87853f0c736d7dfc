package interactive

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tribeca/tribeca-go/pkg/models"
)

// parseQuotingEdits turns key=value arguments into an edit of the quoting
// parameters display value. Keys: width, size, mode, fv.
func parseQuotingEdits(args []string) (func(*models.QuotingParameters), error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("usage: qp width=<n> size=<n> mode=<mode> fv=<model>")
	}

	var edits []func(*models.QuotingParameters)
	for _, arg := range args {
		key, value, err := splitAssignment(arg)
		if err != nil {
			return nil, err
		}

		switch key {
		case "width", "w":
			v, err := parseAmount(key, value)
			if err != nil {
				return nil, err
			}
			edits = append(edits, func(qp *models.QuotingParameters) { qp.Width = v })

		case "size", "s":
			v, err := parseAmount(key, value)
			if err != nil {
				return nil, err
			}
			edits = append(edits, func(qp *models.QuotingParameters) { qp.Size = v })

		case "mode", "m":
			mode, ok := models.ParseQuotingMode(value)
			if !ok {
				return nil, fmt.Errorf("unknown quoting mode %q (use: %s)", value, labels(models.QuotingModeOptions))
			}
			edits = append(edits, func(qp *models.QuotingParameters) { qp.Mode = mode })

		case "fv":
			fv, ok := models.ParseFairValueModel(value)
			if !ok {
				return nil, fmt.Errorf("unknown fair value model %q (use: %s)", value, labels(models.FairValueModelOptions))
			}
			edits = append(edits, func(qp *models.QuotingParameters) { qp.FvModel = fv })

		default:
			return nil, fmt.Errorf("unknown quoting parameter %q (use: width, size, mode, fv)", key)
		}
	}

	return func(qp *models.QuotingParameters) {
		for _, edit := range edits {
			edit(qp)
		}
	}, nil
}

// parseSafetyEdits turns key=value arguments into an edit of the safety
// settings display value. Keys: tpm, cooloff, maxpos.
func parseSafetyEdits(args []string) (func(*models.SafetySettings), error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("usage: ss tpm=<n> cooloff=<minutes> maxpos=<n>")
	}

	var edits []func(*models.SafetySettings)
	for _, arg := range args {
		key, value, err := splitAssignment(arg)
		if err != nil {
			return nil, err
		}
		v, err := parseAmount(key, value)
		if err != nil {
			return nil, err
		}

		switch key {
		case "tpm", "trades":
			edits = append(edits, func(ss *models.SafetySettings) { ss.TradesPerMinute = v })
		case "cooloff", "cool":
			edits = append(edits, func(ss *models.SafetySettings) { ss.CoolOffMinutes = v })
		case "maxpos", "pos":
			edits = append(edits, func(ss *models.SafetySettings) { ss.MaxPosition = v })
		default:
			return nil, fmt.Errorf("unknown safety setting %q (use: tpm, cooloff, maxpos)", key)
		}
	}

	return func(ss *models.SafetySettings) {
		for _, edit := range edits {
			edit(ss)
		}
	}, nil
}

func splitAssignment(arg string) (string, string, error) {
	key, value, ok := strings.Cut(arg, "=")
	if !ok || key == "" || value == "" {
		return "", "", fmt.Errorf("expected key=value, got %q", arg)
	}
	return strings.ToLower(key), value, nil
}

func parseAmount(key, value string) (float64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid %s: %q", key, value)
	}
	if v < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}
	return v, nil
}

func labels[T any](opts []models.Option[T]) string {
	out := make([]string, len(opts))
	for i, o := range opts {
		out[i] = o.Label
	}
	return strings.Join(out, ", ")
}
