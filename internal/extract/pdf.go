package extract

import (
	"bytes"
	"io"
	"regexp"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/insightqa/insightqa/internal/domain"
)

var (
	tjRe = regexp.MustCompile(`\(((?:\\.|[^\\()])*)\)\s*Tj`)
	tjaRe = regexp.MustCompile(`\(((?:\\.|[^\\()])*)\)`)
	tjArrayRe = regexp.MustCompile(`\[((?:\\.|[^\]])*)\]\s*TJ`)
)

// extractPDF pulls text show operators out of each page's content
// stream. Layout is not preserved; the output is retrieval text, not a
// faithful rendering.
func extractPDF(data []byte) (string, error) {
	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return "", domain.ErrCorruptFile.WithDetail("invalid PDF").Wrap(err)
	}

	var sb strings.Builder
	for page := 1; page <= ctx.PageCount; page++ {
		r, err := pdfcpu.ExtractPageContent(ctx, page)
		if err != nil {
			return "", domain.ErrCorruptFile.WithDetail("page %d", page).Wrap(err)
		}
		if r == nil {
			continue
		}
		content, err := io.ReadAll(r)
		if err != nil {
			return "", domain.ErrCorruptFile.WithDetail("page %d", page).Wrap(err)
		}
		if text := contentStreamText(content); text != "" {
			if sb.Len() > 0 {
				sb.WriteByte('\n')
			}
			sb.WriteString(text)
		}
	}
	return sb.String(), nil
}

// contentStreamText collects the literal strings fed to Tj/TJ show
// operators.
func contentStreamText(content []byte) string {
	var parts []string
	for _, m := range tjRe.FindAllSubmatch(content, -1) {
		parts = append(parts, unescapePDFString(string(m[1])))
	}
	for _, m := range tjArrayRe.FindAllSubmatch(content, -1) {
		for _, inner := range tjaRe.FindAllSubmatch(m[1], -1) {
			parts = append(parts, unescapePDFString(string(inner[1])))
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

func unescapePDFString(s string) string {
	replacer := strings.NewReplacer(
		`\(`, "(",
		`\)`, ")",
		`\\`, `\`,
		`\n`, "\n",
		`\r`, "\r",
		`\t`, "\t",
	)
	return replacer.Replace(s)
}
