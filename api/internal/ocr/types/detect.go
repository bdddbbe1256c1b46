package types

// EncodedImage is the canonical image part of the outbound request.
type EncodedImage struct {
	MIMEType     string `json:"mimeType"`
	Data         string `json:"data"` // base64 JPEG
	JPEG         []byte `json:"-"`
	Width        int    `json:"-"`
	Height       int    `json:"-"`
	SourceFormat string `json:"-"` // "png", "webp", ...
}

type Side string

const (
	SideFront   Side = "front"
	SideBack    Side = "back"
	SideUnknown Side = "unknown"
)

// Denominations is the closed set of face values the model may report.
var Denominations = []int{10, 20, 50, 100, 200, 500}

func IsDenomination(v int) bool {
	for _, d := range Denominations {
		if d == v {
			return true
		}
	}
	return false
}

// DetectionResult is the normalized answer for one banknote image.
// Denomination is nil when the note could not be identified.
type DetectionResult struct {
	Side           Side   `json:"side"`
	Denomination   *int   `json:"denomination"`
	FullValidation bool   `json:"full_validation"`
	SpeechText     string `json:"speech_text"`
}

func (r DetectionResult) Detected() bool { return r.Denomination != nil }
