package policy

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-pdf/fpdf"
)

const Title = "Car Insurance Policy Document"

// Paragraph is one non-blank line of generated policy text with markdown markers removed.
type Paragraph struct {
	Text    string
	Heading bool
}

// Paragraphs splits text into one paragraph per non-blank line.
func Paragraphs(text string) []Paragraph {
	var out []Paragraph

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		heading := strings.HasPrefix(line, "#")
		line = strings.TrimSpace(strings.TrimLeft(line, "#"))
		line = strings.ReplaceAll(line, "**", "")
		if line == "" {
			continue
		}

		out = append(out, Paragraph{Text: line, Heading: heading})
	}

	return out
}

type Renderer struct {
	fontFamily string
}

func NewRenderer() *Renderer {
	return &Renderer{fontFamily: "Helvetica"}
}

// Render writes text as a PDF document to path. A partially written file is removed.
func (r *Renderer) Render(text, path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("Renderer.Render: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("Renderer.Render: %w", cerr)
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	return r.RenderTo(f, text)
}

// RenderTo writes text as a PDF document to w.
func (r *Renderer) RenderTo(w io.Writer, text string) error {
	pdf := r.build(text)
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("Renderer.RenderTo: %w", err)
	}
	return nil
}

func (r *Renderer) build(text string) *fpdf.Fpdf {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetMargins(50, 50, 50)
	pdf.SetAutoPageBreak(true, 50)
	pdf.SetTitle(Title, true)
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont(r.fontFamily, "B", 18)
	pdf.CellFormat(0, 22, tr(Title), "", 1, "C", false, 0, "")
	pdf.Ln(12)

	for _, p := range Paragraphs(text) {
		style := ""
		if p.Heading {
			style = "B"
		}
		pdf.SetFont(r.fontFamily, style, 11)
		pdf.MultiCell(0, 15, tr(p.Text), "", "L", false)
		pdf.Ln(10)
	}

	return pdf
}
