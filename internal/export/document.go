package export

import (
	"fmt"
	"html/template"
	"io"
	"time"
)

// displayLayout is the long date, short time form shown on the page.
const displayLayout = "2 January 2006 at 3:04 pm"

var documentTemplate = template.Must(template.New("fir").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>FIR Draft - {{.ID}}</title>
  <style>
    body { font-family: 'Times New Roman', Times, serif; margin: 0; padding: 20px; background-color: #fff; color: #000; }
    .container { max-width: 800px; margin: 0 auto; }
    h1 { font-size: 20px; font-weight: bold; text-align: center; text-transform: uppercase; border-bottom: 2px solid #000; padding-bottom: 10px; margin-bottom: 20px; }
    .meta { font-size: 12px; text-align: right; margin-bottom: 16px; }
    pre { white-space: pre-wrap; word-wrap: break-word; font-family: 'Times New Roman', Times, serif; font-size: 14px; line-height: 1.5; text-align: left; }
    footer { margin-top: 40px; padding-top: 10px; border-top: 1px solid #ccc; text-align: center; font-size: 10px; color: #555; font-style: italic; }
    @media print {
      body { -webkit-print-color-adjust: exact; print-color-adjust: exact; }
      .container { border: none; box-shadow: none; }
    }
  </style>
</head>
<body>
  <div class="container">
    <h1>First Information Report (Draft)</h1>
    <p class="meta">Reference {{.ID}} &middot; Generated {{.Generated}}</p>
    <pre>{{.Draft}}</pre>
    <footer>
      <p>This is a computer-generated draft for review before official submission.</p>
    </footer>
  </div>
</body>
</html>
`))

type page struct {
	ID        string
	Generated string
	Draft     string
}

// Write renders the printable document for draft. The draft is HTML-escaped.
func Write(w io.Writer, id, draft string, generatedAt time.Time) error {
	if err := documentTemplate.Execute(w, page{
		ID:        id,
		Generated: generatedAt.Format(displayLayout),
		Draft:     draft,
	}); err != nil {
		return fmt.Errorf("render document: %w", err)
	}
	return nil
}
