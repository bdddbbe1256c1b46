package ocr

import (
	"context"
	"errors"
	"log"
	"time"

	"banknote-reader/api/internal/imaging"
	"banknote-reader/api/internal/ocr/types"
	"banknote-reader/api/internal/util"
)

// Detector wires the image normalizer to an inference engine.
type Detector struct {
	Engines *Engines
	Image   imaging.Options
}

func NewDetector(engs *Engines, img imaging.Options) *Detector {
	return &Detector{Engines: engs, Image: img}
}

// Engine resolves llmName and fails with ConfigMissing when the engine has no key.
func (d *Detector) Engine(llmName string) (Engine, error) {
	eng, err := d.Engines.GetEngine(llmName)
	if err != nil {
		return nil, err
	}
	if !eng.Configured() {
		return nil, ConfigMissing("Gemini API key not configured")
	}
	return eng, nil
}

// Detect runs one image through eng. raw may be in any supported format.
func (d *Detector) Detect(ctx context.Context, eng Engine, raw []byte) (types.DetectionResult, error) {
	if len(raw) == 0 {
		return types.DetectionResult{}, NoImage()
	}
	start := time.Now()

	img, err := imaging.Normalize(raw, d.Image)
	if err != nil {
		if errors.Is(err, imaging.ErrDecode) {
			log.Printf("detect: decode failed mime=%s size=%d: %v", util.SniffMimeHTTP(raw), len(raw), err)
			return types.DetectionResult{}, ImageDecode(err)
		}
		return types.DetectionResult{}, Internal("image normalize", err)
	}

	res, err := eng.Detect(ctx, img)
	if err != nil {
		e := AsError(err)
		log.Printf("detect: engine=%s model=%s kind=%s status=%d attempts=%d took=%v: %v",
			eng.Name(), eng.GetModel(), e.Kind, e.Status, e.Attempts, time.Since(start), err)
		return types.DetectionResult{}, e
	}
	log.Printf("detect: engine=%s model=%s src=%s %dx%d side=%s denomination=%v valid=%t took=%v",
		eng.Name(), eng.GetModel(), img.SourceFormat, img.Width, img.Height,
		res.Side, denomLog(res.Denomination), res.FullValidation, time.Since(start))
	return res, nil
}

func denomLog(d *int) any {
	if d == nil {
		return "null"
	}
	return *d
}
