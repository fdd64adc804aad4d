package drive

// FolderMimeType marks Drive folders, which are never listed or imported.
const FolderMimeType = "application/vnd.google-apps.folder"

// Google-native formats have no bytes of their own and must be exported.
var exportFormats = map[string]string{
	"application/vnd.google-apps.document":     "application/pdf",
	"application/vnd.google-apps.spreadsheet":  "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"application/vnd.google-apps.presentation": "application/pdf",
	"application/vnd.google-apps.drawing":      "application/pdf",
}

var extensions = map[string]string{
	"application/pdf": ".pdf",

	"application/vnd.google-apps.document":     ".pdf",
	"application/vnd.google-apps.spreadsheet":  ".xlsx",
	"application/vnd.google-apps.presentation": ".pdf",

	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   ".docx",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         ".xlsx",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": ".pptx",

	"text/plain":       ".txt",
	"text/html":        ".html",
	"text/csv":         ".csv",
	"image/jpeg":       ".jpg",
	"image/png":        ".png",
	"image/gif":        ".gif",
	"image/webp":       ".webp",
	"application/json": ".json",
	"application/xml":  ".xml",
}

// ExportFormat returns the format a Google-native file is exported as.
func ExportFormat(mimeType string) (string, bool) {
	f, ok := exportFormats[mimeType]
	return f, ok
}

// ExtensionForMimeType returns the stored file extension, or "" for unknown types.
func ExtensionForMimeType(mimeType string) string {
	return extensions[mimeType]
}
