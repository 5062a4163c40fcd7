package imaging

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/khaledhikmat/handpose-go/model"
)

var (
	connectionColor = color.RGBA{R: 255, G: 255, B: 255, A: 0}
	landmarkColor   = color.RGBA{R: 0, G: 0, B: 255, A: 0}
)

type gocvService struct{}

func NewGoCV() IService {
	return &gocvService{}
}

func (svc *gocvService) Render(img model.Image, hands []model.Hand, quality int) ([]byte, error) {
	if img.Width <= 0 || img.Height <= 0 || len(img.Pix) != img.Width*img.Height*3 {
		return nil, fmt.Errorf("invalid image %dx%d with %d bytes", img.Width, img.Height, len(img.Pix))
	}

	rgb, err := gocv.NewMatFromBytes(img.Height, img.Width, gocv.MatTypeCV8UC3, img.Pix)
	if err != nil {
		return nil, err
	}
	defer rgb.Close()

	bgr := gocv.NewMat()
	defer bgr.Close()
	if err := gocv.CvtColor(rgb, &bgr, gocv.ColorRGBToBGR); err != nil {
		return nil, err
	}

	for _, hand := range hands {
		drawHand(&bgr, hand)
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, bgr, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, err
	}
	defer buf.Close()

	// GetBytes aliases native memory that Close releases
	return append([]byte(nil), buf.GetBytes()...), nil
}

func drawHand(mat *gocv.Mat, hand model.Hand) {
	points := make([]image.Point, len(hand.Landmarks))
	for i, lm := range hand.Landmarks {
		points[i] = image.Pt(int(lm.X*float32(mat.Cols())), int(lm.Y*float32(mat.Rows())))
	}

	for _, c := range HandConnections {
		if c[0] >= len(points) || c[1] >= len(points) {
			continue
		}
		gocv.Line(mat, points[c[0]], points[c[1]], connectionColor, 2)
	}

	for _, p := range points {
		gocv.Circle(mat, p, 4, landmarkColor, -1)
	}
}
