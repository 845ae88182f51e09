package ocr

import "strings"

// confusions fixes characters tesseract commonly misreads on menu boards.
var confusions = strings.NewReplacer(
	"|", "I",
	"[", "(",
	"]", ")",
	"{", "(",
	"}", ")",
	"°", "o",
)

// Clean applies the confusion table and trims surrounding whitespace.
func Clean(text string) string {
	return strings.TrimSpace(confusions.Replace(text))
}
