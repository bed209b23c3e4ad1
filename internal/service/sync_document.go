package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/vutonyhue/warm-hug-backend-sub000/internal/config"
)

// reservedKeys may not appear at any depth of a synced document.
var reservedKeys = map[string]struct{}{
	"user_id":        {},
	"fun_id":         {},
	"wallet_address": {},
	"soul_nft":       {},
	"id":             {},
	"created_at":     {},
	"updated_at":     {},
}

type DocumentLimits struct {
	MaxBytes        int
	MaxDepth        int
	MaxStringLength int
	MaxArrayLength  int
	MaxAbsNumber    float64
	MaxErrors       int
}

func LimitsFromConfig(cfg config.SyncConfig) DocumentLimits {
	return DocumentLimits{
		MaxBytes:        cfg.MaxPayloadBytes,
		MaxDepth:        cfg.MaxDepth,
		MaxStringLength: cfg.MaxStringLength,
		MaxArrayLength:  cfg.MaxArrayLength,
		MaxAbsNumber:    cfg.MaxAbsNumber,
		MaxErrors:       cfg.MaxErrorsPerCall,
	}
}

// DecodeDocument parses raw as a JSON object, keeping numbers exact.
func DecodeDocument(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("unexpected trailing json")
	}
	if doc == nil {
		return nil, fmt.Errorf("document must be a json object")
	}
	return doc, nil
}

type fieldErrors struct {
	max   int
	items []FieldError
}

func (f *fieldErrors) add(field, msg string) {
	if f.max > 0 && len(f.items) >= f.max {
		return
	}
	f.items = append(f.items, FieldError{Field: field, Message: msg})
}

func (f *fieldErrors) full() bool {
	return f.max > 0 && len(f.items) >= f.max
}

// Validate applies the size, depth, reserved-key and field-limit rules in
// that order. raw is the serialized document. The first rule with a
// violation decides the error.
func (l DocumentLimits) Validate(prefix string, raw []byte, doc map[string]any) error {
	if l.MaxBytes > 0 && len(raw) > l.MaxBytes {
		return ErrPayloadTooLarge(fmt.Sprintf("%s is %d bytes, limit is %d", prefix, len(raw), l.MaxBytes))
	}

	if l.MaxDepth > 0 {
		if d := depth(doc); d > l.MaxDepth {
			return ErrValidationFailed([]FieldError{{
				Field:   prefix,
				Message: fmt.Sprintf("nesting depth %d exceeds %d", d, l.MaxDepth),
			}})
		}
	}

	errs := &fieldErrors{max: l.MaxErrors}
	walkKeys(prefix, doc, func(path, key string) {
		if _, ok := reservedKeys[strings.ToLower(key)]; ok {
			errs.add(path, fmt.Sprintf("key %q is reserved", key))
		}
	})
	if len(errs.items) > 0 {
		return ErrValidationFailed(errs.items)
	}

	l.checkValue(prefix, doc, errs)
	if len(errs.items) > 0 {
		return ErrValidationFailed(errs.items)
	}
	return nil
}

func depth(v any) int {
	switch t := v.(type) {
	case map[string]any:
		max := 0
		for _, child := range t {
			if d := depth(child); d > max {
				max = d
			}
		}
		return max + 1
	case []any:
		max := 0
		for _, child := range t {
			if d := depth(child); d > max {
				max = d
			}
		}
		return max + 1
	default:
		return 0
	}
}

func walkKeys(path string, v any, visit func(path, key string)) {
	switch t := v.(type) {
	case map[string]any:
		for _, k := range sortedKeys(t) {
			child := path + "." + k
			visit(child, k)
			walkKeys(child, t[k], visit)
		}
	case []any:
		for i, item := range t {
			walkKeys(path+"["+strconv.Itoa(i)+"]", item, visit)
		}
	}
}

func (l DocumentLimits) checkValue(path string, v any, errs *fieldErrors) {
	if errs.full() {
		return
	}
	switch t := v.(type) {
	case map[string]any:
		for _, k := range sortedKeys(t) {
			l.checkValue(path+"."+k, t[k], errs)
		}
	case []any:
		if l.MaxArrayLength > 0 && len(t) > l.MaxArrayLength {
			errs.add(path, fmt.Sprintf("array has %d elements, limit is %d", len(t), l.MaxArrayLength))
		}
		for i, item := range t {
			l.checkValue(path+"["+strconv.Itoa(i)+"]", item, errs)
		}
	case string:
		if l.MaxStringLength > 0 && utf8.RuneCountInString(t) > l.MaxStringLength {
			errs.add(path, fmt.Sprintf("string exceeds %d characters", l.MaxStringLength))
		}
	case json.Number:
		f, err := strconv.ParseFloat(t.String(), 64)
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			errs.add(path, "number must be finite")
			return
		}
		if l.MaxAbsNumber > 0 && math.Abs(f) > l.MaxAbsNumber {
			errs.add(path, fmt.Sprintf("number must be within ±%g", l.MaxAbsNumber))
		}
	case float64:
		if math.IsInf(t, 0) || math.IsNaN(t) {
			errs.add(path, "number must be finite")
			return
		}
		if l.MaxAbsNumber > 0 && math.Abs(t) > l.MaxAbsNumber {
			errs.add(path, fmt.Sprintf("number must be within ±%g", l.MaxAbsNumber))
		}
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type SyncMode string

const (
	SyncModeMerge   SyncMode = "merge"
	SyncModeReplace SyncMode = "replace"
	SyncModeAppend  SyncMode = "append"
	SyncModeDelta   SyncMode = "delta"
)

func ParseSyncMode(raw string) (SyncMode, bool) {
	switch SyncMode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", SyncModeMerge:
		return SyncModeMerge, true
	case SyncModeReplace:
		return SyncModeReplace, true
	case SyncModeAppend:
		return SyncModeAppend, true
	case SyncModeDelta:
		return SyncModeDelta, true
	default:
		return "", false
	}
}

// MergeDocument combines stored and incoming under mode. Delta behaves as
// merge for documents. Neither input is modified.
func MergeDocument(mode SyncMode, stored, incoming map[string]any) map[string]any {
	switch mode {
	case SyncModeReplace:
		return cloneMap(incoming)
	case SyncModeAppend:
		return appendMaps(stored, incoming)
	default:
		return mergeMaps(stored, incoming)
	}
}

func mergeMaps(stored, incoming map[string]any) map[string]any {
	out := cloneMap(stored)
	if out == nil {
		out = map[string]any{}
	}
	for k, in := range incoming {
		cur, ok := out[k]
		if !ok {
			out[k] = cloneValue(in)
			continue
		}
		curMap, curIsMap := cur.(map[string]any)
		inMap, inIsMap := in.(map[string]any)
		if curIsMap && inIsMap {
			out[k] = mergeMaps(curMap, inMap)
			continue
		}
		curArr, curIsArr := cur.([]any)
		inArr, inIsArr := in.([]any)
		if curIsArr && inIsArr {
			out[k] = unionArrays(curArr, inArr)
			continue
		}
		out[k] = cloneValue(in)
	}
	return out
}

// appendMaps only adds: missing keys are copied in, arrays are unioned and
// nested objects are appended recursively. Existing scalars are kept.
func appendMaps(stored, incoming map[string]any) map[string]any {
	out := cloneMap(stored)
	if out == nil {
		out = map[string]any{}
	}
	for k, in := range incoming {
		cur, ok := out[k]
		if !ok {
			out[k] = cloneValue(in)
			continue
		}
		curArr, curIsArr := cur.([]any)
		inArr, inIsArr := in.([]any)
		if curIsArr && inIsArr {
			out[k] = unionArrays(curArr, inArr)
			continue
		}
		curMap, curIsMap := cur.(map[string]any)
		inMap, inIsMap := in.(map[string]any)
		if curIsMap && inIsMap {
			out[k] = appendMaps(curMap, inMap)
		}
	}
	return out
}

// unionArrays keeps the first occurrence of every element, stored first.
func unionArrays(a, b []any) []any {
	out := make([]any, 0, len(a)+len(b))
	seen := make(map[string]struct{}, len(a)+len(b))
	for _, src := range [][]any{a, b} {
		for _, v := range src {
			key := canonical(v)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, cloneValue(v))
		}
	}
	return out
}

// canonical encodes v with sorted object keys so equal values compare equal.
func canonical(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%#v", v)
	}
	return string(b)
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
