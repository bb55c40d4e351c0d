package constants

// Provider names as they appear in document-type strategy stacks.
// These are stored in tenant configuration; treat them as wire values.
const (
	ProviderPdfText   = "PdfText"
	ProviderTesseract = "Tesseract"
	ProviderPaddleOCR = "PaddleOCR"
	ProviderOllama    = "Ollama"
)

var providerFriendlyNames = map[string]string{
	ProviderPdfText:   "PDF Extraction (Text Layer)",
	ProviderTesseract: "Tesseract (Image OCR)",
	ProviderOllama:    "Ollama (Vision LLM)",
	ProviderPaddleOCR: "PaddleOCR (Multilingual/Tables)",
}

// ProviderFriendlyName returns a human-readable label for a provider id.
func ProviderFriendlyName(id string) string {
	if n, ok := providerFriendlyNames[id]; ok {
		return n
	}
	return id
}
