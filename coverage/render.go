package coverage

import (
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	"github.com/paulmach/orb"
	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"github.com/tdewolff/canvas/renderers/svg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// DefaultOperatorColors returns the default marker color per canonical
// operator.
func DefaultOperatorColors() map[string]color.NRGBA {
	return map[string]color.NRGBA{
		OperatorMTN:     {255, 165, 0, 255},  // orange
		OperatorAirtel:  {220, 20, 60, 255},  // red
		OperatorGlo:     {34, 139, 34, 255},  // green
		Operator9Mobile: {0, 100, 0, 255},    // dark green
		OperatorOther:   {128, 128, 128, 255},
	}
}

// CoverageRenderer draws a static map of one coverage result: region
// outlines, the query marker, the coverage buffer, and the nearest sites
// colored by operator. It renders to SVG or PNG via the canvas renderers,
// or to a raw raster image with a text legend.
type CoverageRenderer struct {
	Result  CoverageResult
	Regions *RegionSet // optional; outlines are skipped when nil

	Colors     map[string]color.NRGBA
	Scale      float64           // canvas units per degree
	PaddingDeg float64           // margin around the content bounds, in degrees
	Resolution canvas.Resolution // resolution for canvas PNG output
}

// NewCoverageRenderer creates a renderer with default scale and palette.
func NewCoverageRenderer(res CoverageResult, regions *RegionSet) *CoverageRenderer {
	return &CoverageRenderer{
		Result:     res,
		Regions:    regions,
		Colors:     DefaultOperatorColors(),
		Scale:      100,
		PaddingDeg: 0.05,
		Resolution: canvas.DPI(96),
	}
}

// canvasRenderer is an interface that both svg and rasterizer renderers implement
type canvasRenderer interface {
	RenderPath(path *canvas.Path, style canvas.Style, m canvas.Matrix)
}

// RenderToSVG writes the coverage map as an SVG to the provided writer.
func (r *CoverageRenderer) RenderToSVG(w io.Writer) error {
	minLon, minLat, maxLon, maxLat := r.contentBounds()
	width := (maxLon - minLon + 2*r.PaddingDeg) * r.Scale
	height := (maxLat - minLat + 2*r.PaddingDeg) * r.Scale

	svgRenderer := svg.New(w, width, height, nil)
	r.renderToCanvas(svgRenderer, minLon, minLat, width, height)
	return svgRenderer.Close()
}

// RenderToPNG writes the coverage map as a PNG to the provided writer.
func (r *CoverageRenderer) RenderToPNG(w io.Writer) error {
	minLon, minLat, maxLon, maxLat := r.contentBounds()
	width := (maxLon - minLon + 2*r.PaddingDeg) * r.Scale
	height := (maxLat - minLat + 2*r.PaddingDeg) * r.Scale

	rast := rasterizer.New(width, height, r.Resolution, canvas.DefaultColorSpace)
	r.renderToCanvas(rast, minLon, minLat, width, height)
	return png.Encode(w, rast)
}

// renderToCanvas renders the map to a canvas renderer (shared by SVG and PNG).
func (r *CoverageRenderer) renderToCanvas(renderer canvasRenderer, minLon, minLat, width, height float64) {
	// White background
	bgStyle := canvas.DefaultStyle
	bgStyle.Fill = canvas.Paint{Color: canvas.White}
	renderer.RenderPath(canvas.Rectangle(width, height), bgStyle, canvas.Identity)

	toCanvas := func(lon, lat float64) (float64, float64) {
		return (lon - minLon + r.PaddingDeg) * r.Scale, (lat - minLat + r.PaddingDeg) * r.Scale
	}

	// Region outlines
	if r.Regions != nil {
		outlineStyle := canvas.DefaultStyle
		outlineStyle.Fill = canvas.Paint{Color: canvas.Transparent}
		outlineStyle.Stroke = canvas.Paint{Color: canvas.Gray}
		outlineStyle.StrokeWidth = 0.5

		for i := 0; i < r.Regions.Len(); i++ {
			for _, ring := range outerRings(r.Regions.Region(i).Geometry) {
				cp := &canvas.Path{}
				for j, pt := range ring {
					cx, cy := toCanvas(pt[0], pt[1])
					if j == 0 {
						cp.MoveTo(cx, cy)
					} else {
						cp.LineTo(cx, cy)
					}
				}
				cp.Close()
				renderer.RenderPath(cp, outlineStyle, canvas.Identity)
			}
		}
	}

	// Coverage buffer around the query point
	if r.Result.RadiusKm > 0 {
		bufferStyle := canvas.DefaultStyle
		if r.Result.Covered {
			bufferStyle.Fill = canvas.Paint{Color: color.RGBA{0, 128, 0, 60}}
			bufferStyle.Stroke = canvas.Paint{Color: color.RGBA{0, 128, 0, 255}}
		} else {
			bufferStyle.Fill = canvas.Paint{Color: color.RGBA{178, 34, 34, 60}}
			bufferStyle.Stroke = canvas.Paint{Color: color.RGBA{178, 34, 34, 255}}
		}
		bufferStyle.StrokeWidth = 0.8

		ring := circlePolygon(r.Result.Query, r.Result.RadiusKm)[0]
		cp := &canvas.Path{}
		for j, pt := range ring {
			cx, cy := toCanvas(pt[0], pt[1])
			if j == 0 {
				cp.MoveTo(cx, cy)
			} else {
				cp.LineTo(cx, cy)
			}
		}
		cp.Close()
		renderer.RenderPath(cp, bufferStyle, canvas.Identity)
	}

	// Site markers colored by operator
	for _, sd := range r.Result.Nearest {
		col, ok := r.Colors[CanonicalOperator(sd.Site.Operator)]
		if !ok {
			col = r.Colors[OperatorOther]
		}

		siteStyle := canvas.DefaultStyle
		siteStyle.Fill = canvas.Paint{Color: nrgbaToRGBA(col)}
		siteStyle.Stroke = canvas.Paint{Color: canvas.Black}
		siteStyle.StrokeWidth = 0.3

		cx, cy := toCanvas(sd.Site.Lon, sd.Site.Lat)
		marker := canvas.Circle(1.5).Translate(cx, cy)
		renderer.RenderPath(marker, siteStyle, canvas.Identity)
	}

	// Query marker drawn last so it stays on top
	queryStyle := canvas.DefaultStyle
	queryStyle.Fill = canvas.Paint{Color: color.RGBA{30, 80, 200, 255}}
	queryStyle.Stroke = canvas.Paint{Color: canvas.Black}
	queryStyle.StrokeWidth = 0.4

	qx, qy := toCanvas(r.Result.Query.Lon, r.Result.Query.Lat)
	renderer.RenderPath(canvas.Circle(2.0).Translate(qx, qy), queryStyle, canvas.Identity)
}

// RenderImage draws the coverage map into a raw raster image with a text
// legend, for callers that want to post-process pixels instead of encoding
// directly.
func (r *CoverageRenderer) RenderImage(widthPx, heightPx int) *image.RGBA {
	if widthPx <= 0 {
		widthPx = 800
	}
	if heightPx <= 0 {
		heightPx = 600
	}

	img := image.NewRGBA(image.Rect(0, 0, widthPx, heightPx))
	for i := range img.Pix {
		img.Pix[i] = 255 // white background
	}

	minLon, minLat, maxLon, maxLat := r.contentBounds()
	minLon -= r.PaddingDeg
	minLat -= r.PaddingDeg
	maxLon += r.PaddingDeg
	maxLat += r.PaddingDeg

	toPixel := func(lon, lat float64) (int, int) {
		x := (lon - minLon) / (maxLon - minLon) * float64(widthPx-1)
		// Raster Y grows downward; latitude grows upward.
		y := (maxLat - lat) / (maxLat - minLat) * float64(heightPx-1)
		return int(x), int(y)
	}

	for _, sd := range r.Result.Nearest {
		col, ok := r.Colors[CanonicalOperator(sd.Site.Operator)]
		if !ok {
			col = r.Colors[OperatorOther]
		}
		x, y := toPixel(sd.Site.Lon, sd.Site.Lat)
		fillCircle(img, x, y, 5, color.RGBA{col.R, col.G, col.B, 255})
	}

	qx, qy := toPixel(r.Result.Query.Lon, r.Result.Query.Lat)
	fillCircle(img, qx, qy, 7, color.RGBA{30, 80, 200, 255})

	r.drawLegend(img)
	return img
}

// drawLegend writes the classification summary into the top-left corner.
func (r *CoverageRenderer) drawLegend(img *image.RGBA) {
	status := "NOT COVERED"
	if r.Result.Covered {
		status = "COVERED"
	}
	drawText(img, 10, 18, "Coverage: "+status, color.RGBA{0, 0, 0, 255})
	drawText(img, 10, 36, "Confidence: "+string(r.Result.Confidence), color.RGBA{0, 0, 0, 255})
	drawText(img, 10, 54, "Region: "+r.Result.Region, color.RGBA{0, 0, 0, 255})
}

// contentBounds computes the lon/lat extent covering the query point, its
// buffer, and the nearest sites.
func (r *CoverageRenderer) contentBounds() (minLon, minLat, maxLon, maxLat float64) {
	minLon, minLat = r.Result.Query.Lon, r.Result.Query.Lat
	maxLon, maxLat = minLon, minLat

	extend := func(lon, lat float64) {
		minLon = math.Min(minLon, lon)
		minLat = math.Min(minLat, lat)
		maxLon = math.Max(maxLon, lon)
		maxLat = math.Max(maxLat, lat)
	}

	for _, sd := range r.Result.Nearest {
		extend(sd.Site.Lon, sd.Site.Lat)
	}
	if r.Result.RadiusKm > 0 {
		for _, pt := range circlePolygon(r.Result.Query, r.Result.RadiusKm)[0] {
			extend(pt[0], pt[1])
		}
	}

	// Degenerate extent (single point, unlimited radius, no sites)
	if maxLon-minLon < 1e-9 {
		minLon -= 0.01
		maxLon += 0.01
	}
	if maxLat-minLat < 1e-9 {
		minLat -= 0.01
		maxLat += 0.01
	}
	return
}

// outerRings extracts the exterior ring of each polygon in a region
// geometry. Holes are not drawn.
func outerRings(g orb.Geometry) []orb.Ring {
	switch geom := g.(type) {
	case orb.Polygon:
		if len(geom) > 0 {
			return []orb.Ring{geom[0]}
		}
	case orb.MultiPolygon:
		rings := make([]orb.Ring, 0, len(geom))
		for _, poly := range geom {
			if len(poly) > 0 {
				rings = append(rings, poly[0])
			}
		}
		return rings
	}
	return nil
}

// nrgbaToRGBA converts color.NRGBA to color.RGBA by premultiplying alpha.
// The canvas library expects premultiplied RGBA.
func nrgbaToRGBA(c color.NRGBA) color.RGBA {
	if c.A == 0 {
		return color.RGBA{0, 0, 0, 0}
	}
	if c.A == 255 {
		return color.RGBA{c.R, c.G, c.B, 255}
	}
	alpha32 := uint32(c.A)
	return color.RGBA{
		R: uint8((uint32(c.R) * alpha32) / 255),
		G: uint8((uint32(c.G) * alpha32) / 255),
		B: uint8((uint32(c.B) * alpha32) / 255),
		A: c.A,
	}
}

// fillCircle draws a filled circle onto the image, clipped to its bounds.
func fillCircle(img *image.RGBA, cx, cy, radius int, c color.RGBA) {
	b := img.Bounds()
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy > radius*radius {
				continue
			}
			x, y := cx+dx, cy+dy
			if x >= b.Min.X && x < b.Max.X && y >= b.Min.Y && y < b.Max.Y {
				img.SetRGBA(x, y, c)
			}
		}
	}
}

// drawText renders text onto an image at the specified position
func drawText(img *image.RGBA, x, y int, text string, c color.RGBA) {
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}
