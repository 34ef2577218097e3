package imgx

import (
	"bytes"
	"errors"
	"image"
	_ "image/gif" // 注册 GIF 解码器
	"image/jpeg"
	_ "image/png" // 注册 PNG 解码器
)

// Info 是图片的格式与尺寸（只读头部，不解码像素）。
type Info struct {
	Format string
	Width  int
	Height int
}

// Inspect 校验 b 是可识别的图片，并返回格式与尺寸。
// 站点偶尔对失效图片返回 HTML 错误页（200），这里据此把它当成失败。
func Inspect(b []byte) (Info, error) {
	if len(b) == 0 {
		return Info{}, errors.New("图片为空")
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(b))
	if err != nil {
		return Info{}, err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Info{}, errors.New("图片尺寸无效")
	}
	return Info{Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

// ToJPEG 把任意已注册格式的图片转为 JPEG（已是 JPEG 时原样返回）。
func ToJPEG(b []byte) ([]byte, error) {
	info, err := Inspect(b)
	if err != nil {
		return nil, err
	}
	if info.Format == "jpeg" {
		return b, nil
	}

	img, _, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := jpeg.Encode(&out, img, &jpeg.Options{Quality: 95}); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
