package source

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
)

const (
	minDimension int = 16
	barWidth     int = 24
)

func NewSynthetic(namespace []string, width, height, quality int) (new *Synthetic) {
	if width < minDimension {
		width = minDimension
	}
	if height < minDimension {
		height = minDimension
	}
	if quality < 1 || quality > 100 {
		quality = jpeg.DefaultQuality
	}
	new = &Synthetic{
		Namespace: namespace,
		width:     width,
		height:    height,
		quality:   quality,
	}
	return
}

// Renders and encodes the next pattern frame
func (synthetic *Synthetic) Next(ctx context.Context) (frame []byte, err error) {
	err = ctx.Err()
	if err != nil {
		return
	}

	img := synthetic.render(synthetic.tick)
	synthetic.tick++

	synthetic.encoded.Reset()
	err = jpeg.Encode(&synthetic.encoded, img, &jpeg.Options{Quality: synthetic.quality})
	if err != nil {
		err = fmt.Errorf("failed to encode synthetic frame: %w", err)
		synthetic.Metrics.record(nil, err)
		return
	}

	frame = append([]byte(nil), synthetic.encoded.Bytes()...)
	synthetic.Metrics.record(frame, nil)
	return
}

// Diagonal gradient that drifts with tick, crossed by a sweeping white bar
func (synthetic *Synthetic) render(tick int) (img *image.RGBA) {
	img = image.NewRGBA(image.Rect(0, 0, synthetic.width, synthetic.height))

	barStart := (tick * 4) % synthetic.width
	for y := 0; y < synthetic.height; y++ {
		for x := 0; x < synthetic.width; x++ {
			offset := x - barStart
			if offset >= 0 && offset < barWidth {
				img.SetRGBA(x, y, color.RGBA{R: 255, G: 255, B: 255, A: 255})
				continue
			}
			img.SetRGBA(x, y, color.RGBA{
				R: uint8((x + tick) * 255 / synthetic.width),
				G: uint8((y + tick) * 255 / synthetic.height),
				B: uint8(tick * 3),
				A: 255,
			})
		}
	}
	return
}

func (synthetic *Synthetic) Close() (err error) {
	return
}
