package ocr

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"banknote-reader/api/internal/ocr/types"
	"banknote-reader/api/internal/util"
)

// rawDetection mirrors the model output before coercion. Loose fields stay
// json.RawMessage so that int/string/null variants can be told apart.
type rawDetection struct {
	Side           *string         `json:"side"`
	Denomination   json.RawMessage `json:"denomination"`
	FullValidation json.RawMessage `json:"full_validation"`
	SpeechText     *string         `json:"speech_text"`
}

// ParseDetection turns the model text (JSON, possibly fenced) into a DetectionResult.
func ParseDetection(text string) (types.DetectionResult, error) {
	raw := strings.TrimSpace(text)
	body := util.StripCodeFences(raw)

	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	var rd rawDetection
	if err := dec.Decode(&rd); err != nil {
		return types.DetectionResult{}, Malformed("Gemini returned invalid JSON", raw, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return types.DetectionResult{}, Malformed("Gemini returned text after the JSON object", raw, err)
	}

	denom, err := parseDenomination(rd.Denomination)
	if err != nil {
		return types.DetectionResult{}, Malformed("bad denomination", raw, err)
	}

	out := types.DetectionResult{
		Side:           parseSide(rd.Side),
		Denomination:   denom,
		FullValidation: parseBool(rd.FullValidation),
	}
	if rd.SpeechText != nil {
		out.SpeechText = strings.TrimSpace(*rd.SpeechText)
	}
	if out.SpeechText == "" {
		return types.DetectionResult{}, Malformed("speech_text is missing", raw, nil)
	}
	return out, nil
}

func parseSide(s *string) types.Side {
	if s == nil {
		return types.SideUnknown
	}
	switch strings.ToLower(strings.TrimSpace(*s)) {
	case "front":
		return types.SideFront
	case "back":
		return types.SideBack
	}
	return types.SideUnknown
}

func parseDenomination(m json.RawMessage) (*int, error) {
	m = bytes.TrimSpace(m)
	if len(m) == 0 || bytes.Equal(m, []byte("null")) {
		return nil, nil
	}

	var s string
	if m[0] == '"' {
		if err := json.Unmarshal(m, &s); err != nil {
			return nil, err
		}
		s = strings.TrimSpace(s)
		switch strings.ToLower(s) {
		case "", "null", "none", "unknown":
			return nil, nil
		}
	} else {
		s = string(m)
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("not a number: %s", m)
	}
	v := int(f)
	if float64(v) != f || !types.IsDenomination(v) {
		return nil, fmt.Errorf("unexpected value %s", s)
	}
	return &v, nil
}

func parseBool(m json.RawMessage) bool {
	m = bytes.TrimSpace(m)
	if len(m) == 0 {
		return false
	}
	var v any
	dec := json.NewDecoder(bytes.NewReader(m))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return false
	}
	switch x := v.(type) {
	case bool:
		return x
	case json.Number:
		f, err := x.Float64()
		return err == nil && f != 0
	case string:
		s := strings.ToLower(strings.TrimSpace(x))
		if b, err := strconv.ParseBool(s); err == nil {
			return b
		}
		return s == "yes" || s == "y"
	}
	return false
}
