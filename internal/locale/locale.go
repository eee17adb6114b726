package locale

import "strings"

// Supported locales. Everything user-facing goes through this catalog so
// errors never leak as raw technical text.
const (
	EN = "en"
	ID = "id"
)

// Message keys.
const (
	KeyTooShort           = "error.too_short"
	KeyOffline            = "error.offline"
	KeyUploadFailed       = "error.upload_failed"
	KeyAnalysisFailed     = "error.analysis_failed"
	KeyPermissionDenied   = "error.permission_denied"
	KeyNoSummary          = "placeholder.summary"
	KeyNoTranscript       = "placeholder.transcript"
	KeyNoLocation         = "placeholder.location"
	KeyDefaultTitlePrefix = "session.default_title_prefix"
)

var catalog = map[string]map[string]string{
	EN: {
		KeyTooShort:           "Recording was too short to analyze.",
		KeyOffline:            "You appear to be offline. The recording was not saved.",
		KeyUploadFailed:       "Uploading the recording failed.",
		KeyAnalysisFailed:     "Analyzing the recording failed.",
		KeyPermissionDenied:   "Microphone access was denied.",
		KeyNoSummary:          "No summary available.",
		KeyNoTranscript:       "No transcript available.",
		KeyNoLocation:         "Location unavailable",
		KeyDefaultTitlePrefix: "Meeting on",
	},
	ID: {
		KeyTooShort:           "Rekaman terlalu pendek untuk dianalisis.",
		KeyOffline:            "Anda sedang offline. Rekaman tidak disimpan.",
		KeyUploadFailed:       "Gagal mengunggah rekaman.",
		KeyAnalysisFailed:     "Gagal menganalisis rekaman.",
		KeyPermissionDenied:   "Akses mikrofon ditolak.",
		KeyNoSummary:          "Ringkasan tidak tersedia.",
		KeyNoTranscript:       "Transkrip tidak tersedia.",
		KeyNoLocation:         "Lokasi tidak tersedia",
		KeyDefaultTitlePrefix: "Rapat pada",
	},
}

var analysisPrompts = map[string]string{
	EN: "You are a meeting assistant. Analyze the recorded meeting audio and respond with a single JSON object with these keys: " +
		`"summary" (string, concise meeting summary), "actionItems" (array of strings), ` +
		`"transcript" (string, full transcript with speaker labels like "Speaker 1:"), ` +
		`"speakers" (array of speaker label strings). Respond in English. JSON only, no prose.`,
	ID: "Anda adalah asisten rapat. Analisis audio rapat ini dan balas dengan satu objek JSON dengan kunci: " +
		`"summary" (string, ringkasan rapat), "actionItems" (array string), ` +
		`"transcript" (string, transkrip lengkap dengan label pembicara seperti "Speaker 1:"), ` +
		`"speakers" (array label pembicara). Jawab dalam bahasa Indonesia. Hanya JSON, tanpa prosa.`,
}

var actionPrompts = map[string]string{
	EN: "You are a meeting assistant. Given the meeting context and one action item, decide which single tool (if any) executes it. " +
		"Respond with one JSON object: {\"toolName\": string, \"arguments\": object}. " +
		"Valid toolName values: create_calendar_event, draft_email, draft_invoice_email, initiate_phone_call, create_document. " +
		"If no tool fits, omit toolName. JSON only.",
	ID: "Anda adalah asisten rapat. Berdasarkan konteks rapat dan satu butir tindakan, pilih satu alat (jika ada) yang menjalankannya. " +
		"Balas dengan satu objek JSON: {\"toolName\": string, \"arguments\": object}. " +
		"Nilai toolName yang sah: create_calendar_event, draft_email, draft_invoice_email, initiate_phone_call, create_document. " +
		"Jika tidak ada yang cocok, hilangkan toolName. Hanya JSON.",
}

// Normalize maps browser-style language tags onto a supported locale.
func Normalize(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	switch {
	case v == "id" || strings.HasPrefix(v, "id-"):
		return ID
	default:
		return EN
	}
}

// Lookup returns the message for key in the given locale, falling back to
// English and finally to the key itself.
func Lookup(loc, key string) string {
	if m, ok := catalog[Normalize(loc)]; ok {
		if s, ok := m[key]; ok {
			return s
		}
	}
	if s, ok := catalog[EN][key]; ok {
		return s
	}
	return key
}

// AnalysisPrompt returns the locale-specific instruction for the initial
// analysis pass.
func AnalysisPrompt(loc string) string {
	if p, ok := analysisPrompts[Normalize(loc)]; ok {
		return p
	}
	return analysisPrompts[EN]
}

// ActionPrompt returns the locale-specific instruction for the one-click
// action suggestion.
func ActionPrompt(loc string) string {
	if p, ok := actionPrompts[Normalize(loc)]; ok {
		return p
	}
	return actionPrompts[EN]
}
