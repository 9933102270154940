package mcp

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/a3tai/mcp-pdf-forms/internal/domain"
	"github.com/a3tai/mcp-pdf-forms/internal/mapping"
)

// errUnorderedMapping rejects fieldMapping objects that reached us as decoded
// maps; their entry order, which drives item cycling, is already lost
var errUnorderedMapping = errors.New("template.fieldMapping as an object loses its entry order; " +
	"pass it as a JSON string or as a list of {pdfField, source, field, transform}")

// orderArgs are the arguments shared by the order form tools
type orderArgs struct {
	Template  *domain.PdfTemplate `json:"template"`
	OrderData *domain.OrderData   `json:"orderData"`
	Location  string              `json:"location"`
	Values    map[string]string   `json:"values"`
	Flatten   *bool               `json:"flatten"`
	Save      bool                `json:"save"`
}

func (a *orderArgs) order() domain.OrderData {
	if a.OrderData == nil {
		return domain.OrderData{}
	}
	return *a.OrderData
}

// mappingEntry is one element of the list form of a field mapping
type mappingEntry struct {
	PDFField  string `json:"pdfField"`
	Source    string `json:"source"`
	Field     string `json:"field"`
	Transform string `json:"transform"`
}

var statusType = reflect.TypeOf(domain.Status(""))

// decodeArgs decodes tool arguments into orderArgs. Object arguments may also
// arrive as JSON strings; dates are RFC 3339.
func decodeArgs(request mcp.CallToolRequest) (*orderArgs, error) {
	raw := request.GetArguments()
	for _, key := range []string{"orderData", "values"} {
		s, ok := raw[key].(string)
		if !ok {
			continue
		}
		if strings.TrimSpace(s) == "" {
			delete(raw, key)
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal([]byte(s), &obj); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", key, err)
		}
		raw[key] = obj
	}
	if tpl, ok := raw["template"]; ok {
		normalized, err := templateArg(tpl)
		if err != nil {
			return nil, err
		}
		if normalized == nil {
			delete(raw, "template")
		} else {
			raw["template"] = normalized
		}
	}

	var args orderArgs
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeHookFunc(time.RFC3339),
			statusHook,
		),
		Result: &args,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	return &args, nil
}

// templateArg brings a template argument into map form with fieldMapping as
// persisted JSON text. A template given as a JSON string keeps the raw text of
// its fieldMapping object so the entry order survives.
func templateArg(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(t) == "" {
			return nil, nil
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal([]byte(t), &fields); err != nil {
			return nil, fmt.Errorf("invalid template: %w", err)
		}
		obj := make(map[string]any, len(fields))
		for key, rawVal := range fields {
			if key == "fieldMapping" && bytes.HasPrefix(bytes.TrimSpace(rawVal), []byte("{")) {
				obj[key] = string(rawVal)
				continue
			}
			var val any
			if err := json.Unmarshal(rawVal, &val); err != nil {
				return nil, fmt.Errorf("invalid template.%s: %w", key, err)
			}
			obj[key] = val
		}
		return normalizeTemplate(obj)
	case map[string]any:
		return normalizeTemplate(t)
	default:
		return v, nil
	}
}

func normalizeTemplate(tpl map[string]any) (map[string]any, error) {
	switch fm := tpl["fieldMapping"].(type) {
	case map[string]any:
		return nil, errUnorderedMapping
	case []any:
		persisted, err := mappingFromList(fm)
		if err != nil {
			return nil, err
		}
		tpl["fieldMapping"] = persisted
	}
	return tpl, nil
}

// mappingFromList encodes the list form of a field mapping, in list order
func mappingFromList(list []any) (string, error) {
	var entries []mappingEntry
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{TagName: "json", Result: &entries})
	if err != nil {
		return "", err
	}
	if err := dec.Decode(list); err != nil {
		return "", fmt.Errorf("invalid template.fieldMapping: %w", err)
	}
	cfg := mapping.NewConfig()
	for i, e := range entries {
		if strings.TrimSpace(e.PDFField) == "" {
			return "", fmt.Errorf("invalid template.fieldMapping: entry %d has no pdfField", i+1)
		}
		cfg.Set(mapping.FieldMapping{
			PDFField:  e.PDFField,
			Source:    mapping.Source(e.Source),
			Field:     e.Field,
			Transform: e.Transform,
		})
	}
	return mapping.EncodePersistedMapping(cfg)
}

// statusHook restricts order list statuses to the known set
func statusHook(from, to reflect.Type, data any) (any, error) {
	if to != statusType || from.Kind() != reflect.String {
		return data, nil
	}
	s := reflect.ValueOf(data).String()
	if strings.TrimSpace(s) == "" {
		return domain.Status(""), nil
	}
	return domain.ParseStatus(s)
}
