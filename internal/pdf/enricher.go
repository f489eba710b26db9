package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/skip2/go-qrcode"
)

const (
	// DefaultBandHeight is the height of the barcode band added to the first page.
	DefaultBandHeight = 100.0
	// DefaultDPI is the resolution pages are rasterized at.
	DefaultDPI = 150.0
	// DefaultJPEGQuality is the encoder quality of page images.
	DefaultJPEGQuality = 85

	// PayloadFileName is the name of the embedded structured invoice.
	PayloadFileName = "invoice.xml"

	bandMargin = 10.0
)

// Rasterizer renders every page of a PDF to an image.
type Rasterizer interface {
	Rasterize(data []byte, dpi float64) ([]image.Image, error)
}

// Enricher stamps the public token as a QR code onto the first page and embeds
// the structured payload as an associated file.
type Enricher struct {
	raster     Rasterizer
	dpi        float64
	quality    int
	bandHeight float64
	now        func() time.Time
}

// EnricherOption configures an Enricher.
type EnricherOption func(*Enricher)

// WithDPI sets the rasterization resolution. Non-positive values are ignored.
func WithDPI(dpi float64) EnricherOption {
	return func(e *Enricher) {
		if dpi > 0 {
			e.dpi = dpi
		}
	}
}

// WithJPEGQuality sets the page image quality, 1 to 100.
func WithJPEGQuality(q int) EnricherOption {
	return func(e *Enricher) {
		if q >= 1 && q <= 100 {
			e.quality = q
		}
	}
}

// WithBandHeight sets the height of the QR band in points. It must leave
// room for the band margins.
func WithBandHeight(h float64) EnricherOption {
	return func(e *Enricher) {
		if h > 2*bandMargin {
			e.bandHeight = h
		}
	}
}

// NewEnricher returns an Enricher drawing pages produced by r.
func NewEnricher(r Rasterizer, opts ...EnricherOption) *Enricher {
	e := &Enricher{raster: r, dpi: DefaultDPI, quality: DefaultJPEGQuality, bandHeight: DefaultBandHeight, now: time.Now}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Payload is the file embedded into the enriched document.
type Payload struct {
	Name        string
	ContentType string
	Data        []byte
}

// Enrich returns a new document built from src. Every failure is an *Error.
// Without payload data the document is stamped but carries no associated file.
func (e *Enricher) Enrich(src []byte, token string, payload Payload) ([]byte, error) {
	if token == "" {
		return nil, stepErr("qr", errors.New("empty token"))
	}
	dims, err := PageSizes(src)
	if err != nil {
		return nil, err
	}
	pages, err := e.raster.Rasterize(src, e.dpi)
	if err != nil {
		return nil, stepErr("rasterize", err)
	}
	if len(pages) != len(dims) {
		return nil, stepErr("rasterize", fmt.Errorf("rendered %d pages, document has %d", len(pages), len(dims)))
	}
	qr, err := qrPNG(token, e.bandHeight-2*bandMargin)
	if err != nil {
		return nil, stepErr("qr", err)
	}

	name := payload.Name
	if name == "" {
		name = PayloadFileName
	}

	first := dims[0]
	doc := fpdf.NewCustom(&fpdf.InitType{
		UnitStr: "pt",
		Size:    fpdf.SizeType{Wd: first.Width, Ht: first.Height + e.bandHeight},
	})
	doc.SetMargins(0, 0, 0)
	doc.SetAutoPageBreak(false, 0)
	doc.SetCreator("invoicevault", true)
	doc.SetCreationDate(e.now())
	doc.SetXmpMetadata(xmpMetadata(name, e.now()))

	for i, img := range pages {
		d := dims[i]
		body := 0.0
		if i == 0 {
			body = e.bandHeight
		}
		doc.AddPageFormat("P", fpdf.SizeType{Wd: d.Width, Ht: d.Height + body})
		if err := drawImage(doc, fmt.Sprintf("page-%d", i), img, e.quality, 0, body, d.Width, d.Height); err != nil {
			return nil, stepErr("compose", err)
		}
		if i == 0 {
			e.drawBand(doc, d.Width, qr, token)
		}
	}

	if len(payload.Data) > 0 {
		doc.SetAttachments([]fpdf.Attachment{{
			Content:     payload.Data,
			Filename:    name,
			Description: "Machine-readable invoice (" + payload.ContentType + ")",
		}})
	}

	var composed bytes.Buffer
	if err := doc.Output(&composed); err != nil {
		return nil, stepErr("compose", err)
	}
	if len(payload.Data) == 0 {
		return composed.Bytes(), nil
	}
	out, err := markAssociatedFiles(composed.Bytes())
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Enricher) drawBand(doc *fpdf.Fpdf, width float64, qr []byte, token string) {
	doc.SetFillColor(255, 255, 255)
	doc.Rect(0, 0, width, e.bandHeight, "F")

	size := e.bandHeight - 2*bandMargin
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	doc.RegisterImageOptionsReader("token-qr", opts, bytes.NewReader(qr))
	doc.ImageOptions("token-qr", bandMargin, bandMargin, size, size, false, opts, 0, "")

	x := 2*bandMargin + size
	doc.SetTextColor(0, 0, 0)
	doc.SetFont("Helvetica", "B", 9)
	doc.Text(x, bandMargin+12, "Electronic invoice")
	doc.SetFont("Courier", "", 6)
	doc.Text(x, bandMargin+26, token[:len(token)/2])
	doc.Text(x, bandMargin+34, token[len(token)/2:])
	doc.SetFont("Helvetica", "", 7)
	doc.Text(x, bandMargin+size-4, "Scan the code to retrieve this document.")
}

// drawImage embeds img as a JPEG. Lossless PNG pages made enriched
// documents many times the size of their source.
func drawImage(doc *fpdf.Fpdf, name string, img image.Image, quality int, x, y, w, h float64) error {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return err
	}
	opts := fpdf.ImageOptions{ImageType: "JPG"}
	doc.RegisterImageOptionsReader(name, opts, &buf)
	doc.ImageOptions(name, x, y, w, h, false, opts, 0, "")
	return doc.Error()
}

// qrPNG renders tok with high error correction and no quiet zone border.
func qrPNG(tok string, sizePt float64) ([]byte, error) {
	q, err := qrcode.New(tok, qrcode.Highest)
	if err != nil {
		return nil, err
	}
	q.DisableBorder = true
	// four pixels per point keeps the code sharp when printed
	return q.PNG(int(sizePt * 4))
}

// markAssociatedFiles declares every embedded file as the source of the
// document: /AFRelationship /Source on the file spec, /AF on the catalog.
func markAssociatedFiles(data []byte) ([]byte, error) {
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), configuration())
	if err != nil {
		return nil, stepErr("associate", err)
	}
	catalog, err := ctx.Catalog()
	if err != nil {
		return nil, stepErr("associate", err)
	}
	names, err := ctx.DereferenceDict(catalog["Names"])
	if err != nil || names == nil {
		return nil, stepErr("associate", errors.New("catalog has no name dictionary"))
	}
	tree, err := ctx.DereferenceDict(names["EmbeddedFiles"])
	if err != nil || tree == nil {
		return nil, stepErr("associate", errors.New("catalog has no embedded files"))
	}
	entries, err := ctx.DereferenceArray(tree["Names"])
	if err != nil {
		return nil, stepErr("associate", err)
	}

	var af types.Array
	for i := 1; i < len(entries); i += 2 {
		switch o := entries[i].(type) {
		case types.IndirectRef:
			spec, err := ctx.DereferenceDict(o)
			if err != nil {
				return nil, stepErr("associate", err)
			}
			spec["AFRelationship"] = types.Name("Source")
			af = append(af, o)
		case types.Dict:
			// /AF needs indirect references, so inline specs are promoted.
			o["AFRelationship"] = types.Name("Source")
			ref, err := ctx.IndRefForNewObject(o)
			if err != nil {
				return nil, stepErr("associate", err)
			}
			entries[i] = *ref
			af = append(af, *ref)
		}
	}
	if len(af) == 0 {
		return nil, stepErr("associate", errors.New("no embedded file specification found"))
	}
	catalog["AF"] = af

	var out bytes.Buffer
	if err := api.WriteContext(ctx, &out); err != nil {
		return nil, stepErr("write", err)
	}
	return out.Bytes(), nil
}

func xmpMetadata(file string, at time.Time) []byte {
	ts := at.UTC().Format(time.RFC3339)
	return []byte(`<?xpacket begin="` + "\ufeff" + `" id="W5M0MpCehiHzreSzNTczkc9d"?>
<x:xmpmeta xmlns:x="adobe:ns:meta/">
 <rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">
  <rdf:Description rdf:about=""
    xmlns:pdfaid="http://www.aiim.org/pdfa/ns/id/"
    xmlns:xmp="http://ns.adobe.com/xap/1.0/"
    xmlns:pdf="http://ns.adobe.com/pdf/1.3/"
    xmlns:fx="urn:factur-x:pdfa:CrossIndustryDocument:invoice:1p0#">
   <pdfaid:part>3</pdfaid:part>
   <pdfaid:conformance>B</pdfaid:conformance>
   <xmp:CreateDate>` + ts + `</xmp:CreateDate>
   <xmp:CreatorTool>invoicevault</xmp:CreatorTool>
   <pdf:Producer>invoicevault</pdf:Producer>
   <fx:DocumentType>INVOICE</fx:DocumentType>
   <fx:DocumentFileName>` + file + `</fx:DocumentFileName>
  </rdf:Description>
 </rdf:RDF>
</x:xmpmeta>
<?xpacket end="w"?>`)
}
