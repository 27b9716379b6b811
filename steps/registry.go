package steps

import (
	"fmt"

	"github.com/grailbio/fqproc/stage"
)

// KnownTypes lists every step type Build recognizes, sorted, for the
// CLI's list-steps subcommand.
func KnownTypes() []string {
	return []string{
		"cut_end",
		"cut_start",
		"demultiplex",
		"head",
		"max_len",
		"rename",
		"reverse_complement",
		"trim_adapter_mismatch_tail",
		"trim_poly_base_suffix",
		"trim_quality_end",
		"trim_quality_start",
	}
}

// Build constructs the Step named typ from an open-ended argument
// table (as decoded from a `[[step]]` TOML table's `args` key), per
// spec §6. Only a representative slice of the full operator catalog is
// implemented; an unrecognized type is a configuration error, not a
// panic.
func Build(typ string, args map[string]interface{}) (stage.Step, error) {
	switch typ {
	case "head":
		n, err := intArg(args, "n")
		if err != nil {
			return nil, err
		}
		return NewHead(n), nil
	case "cut_start":
		n, err := intArg(args, "n")
		if err != nil {
			return nil, err
		}
		return &CutStart{N: n, Segments: stringsArg(args, "segments")}, nil
	case "cut_end":
		n, err := intArg(args, "n")
		if err != nil {
			return nil, err
		}
		return &CutEnd{N: n, Segments: stringsArg(args, "segments")}, nil
	case "max_len":
		n, err := intArg(args, "n")
		if err != nil {
			return nil, err
		}
		return &MaxLen{N: n, Segments: stringsArg(args, "segments")}, nil
	case "trim_quality_start":
		q, err := intArg(args, "min_qual")
		if err != nil {
			return nil, err
		}
		return &TrimQualityStart{MinQual: byte(q), Segments: stringsArg(args, "segments")}, nil
	case "trim_quality_end":
		q, err := intArg(args, "min_qual")
		if err != nil {
			return nil, err
		}
		return &TrimQualityEnd{MinQual: byte(q), Segments: stringsArg(args, "segments")}, nil
	case "trim_poly_base_suffix":
		minLen, err := intArg(args, "min_len")
		if err != nil {
			return nil, err
		}
		base := stringArg(args, "base")
		if len(base) != 1 {
			return nil, fmt.Errorf("steps: trim_poly_base_suffix: args.base must be one byte")
		}
		return &TrimPolyBaseSuffix{
			MinLen:                   minLen,
			MaxMismatchFraction:      floatArg(args, "max_mismatch_fraction"),
			MaxConsecutiveMismatches: int(floatArg(args, "max_consecutive_mismatches")),
			Base:                     base[0],
			Segments:                 stringsArg(args, "segments"),
		}, nil
	case "trim_adapter_mismatch_tail":
		minLen, err := intArg(args, "min_len")
		if err != nil {
			return nil, err
		}
		maxMismatches, err := intArg(args, "max_mismatches")
		if err != nil {
			return nil, err
		}
		return &TrimAdapterMismatchTail{
			Query:         []byte(stringArg(args, "query")),
			MinLen:        minLen,
			MaxMismatches: maxMismatches,
			Segments:      stringsArg(args, "segments"),
		}, nil
	case "reverse_complement":
		return &ReverseComplement{Segments: stringsArg(args, "segments")}, nil
	case "rename":
		tmpl := stringArg(args, "template")
		if tmpl == "" {
			return nil, fmt.Errorf("steps: rename: args.template is required")
		}
		return &Rename{Template: tmpl, Segments: stringsArg(args, "segments")}, nil
	case "demultiplex":
		seg := stringArg(args, "segment")
		if seg == "" {
			return nil, fmt.Errorf("steps: demultiplex: args.segment is required")
		}
		barcodes := map[string]string{}
		if raw, ok := args["barcodes"].(map[string]interface{}); ok {
			for seq, name := range raw {
				if s, ok := name.(string); ok {
					barcodes[seq] = s
				}
			}
		}
		return &Demultiplex{
			Segment:          seg,
			Barcodes:         barcodes,
			IncludeNoBarcode: boolArg(args, "include_no_barcode"),
		}, nil
	default:
		return nil, fmt.Errorf("steps: unrecognized step type %q", typ)
	}
}

func intArg(args map[string]interface{}, key string) (int, error) {
	v, ok := args[key]
	if !ok {
		return 0, fmt.Errorf("steps: missing required arg %q", key)
	}
	switch n := v.(type) {
	case int64:
		return int(n), nil
	case int:
		return n, nil
	case float64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("steps: arg %q must be an integer, got %T", key, v)
	}
}

func floatArg(args map[string]interface{}, key string) float64 {
	switch n := args[key].(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	default:
		return 0
	}
}

func stringArg(args map[string]interface{}, key string) string {
	s, _ := args[key].(string)
	return s
}

func boolArg(args map[string]interface{}, key string) bool {
	b, _ := args[key].(bool)
	return b
}

func stringsArg(args map[string]interface{}, key string) []string {
	raw, ok := args[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
