// Package icons selects the display icon for a listing entry: a folder for
// directories, a MIME-derived icon for files.
package icons

import "github.com/fileybot/filey/pkg/namespace"

const (
	Directory = "📂"

	audio    = "🎵"
	document = "📄"
	picture  = "🏞"
	unknown  = "❔"
	video    = "📹"
)

var mimeIcons = map[string]string{
	"application/epub+zip":                          document,
	"application/java-archive":                      document,
	"application/javascript":                        document,
	"application/json":                              document,
	"application/msword":                            document,
	"application/octet-stream":                      document,
	"application/ogg":                               audio,
	"application/pdf":                               document,
	"application/rtf":                               document,
	"application/sql":                               document,
	"application/vnd.amazon.ebook":                  document,
	"application/vnd.apple.installer+xml":           document,
	"application/vnd.mozilla.xul+xml":               document,
	"application/vnd.ms-excel":                      document,
	"application/vnd.ms-powerpoint":                 document,
	"application/vnd.oasis.opendocument.presentation": document,
	"application/vnd.oasis.opendocument.spreadsheet":  document,
	"application/vnd.oasis.opendocument.text":         document,
	"application/vnd.visio":                         document,
	"application/x-abiword":                         document,
	"application/x-bzip":                            document,
	"application/x-bzip2":                           document,
	"application/x-csh":                             document,
	"application/x-rar-compressed":                  document,
	"application/x-sh":                              document,
	"application/x-shockwave-flash":                 document,
	"application/x-tar":                             document,
	"application/xhtml+xml":                         document,
	"application/xml":                               document,
	"application/zip":                               document,
	"audio/aac":                                     audio,
	"audio/midi":                                    audio,
	"audio/ogg":                                     audio,
	"audio/webm":                                    audio,
	"audio/x-wav":                                   audio,
	"font/ttf":                                      document,
	"font/woff":                                     document,
	"font/woff2":                                    document,
	"image/gif":                                     picture,
	"image/jpeg":                                    picture,
	"image/png":                                     picture,
	"image/svg+xml":                                 picture,
	"image/tiff":                                    picture,
	"image/webp":                                    picture,
	"image/x-icon":                                  picture,
	"text/calendar":                                 document,
	"text/css":                                      document,
	"text/csv":                                      document,
	"text/html":                                     document,
	"video/3gpp":                                    video,
	"video/3gpp2":                                   video,
	"video/mpeg":                                    video,
	"video/ogg":                                     video,
	"video/webm":                                    video,
	"video/x-msvideo":                               video,
}

// For picks the icon for an entry. File metadata is the stored message
// descriptor; the mime_type key can sit at any nesting depth, so the lookup
// flattens nested maps first.
func For(e namespace.Entry) string {
	switch e.Kind {
	case namespace.KindDirectory:
		return Directory
	case namespace.KindFile:
		mime, ok := flatten(e.File.Metadata)["mime_type"].(string)
		if !ok {
			return document
		}
		if icon, ok := mimeIcons[mime]; ok {
			return icon
		}
		return document
	}

	return unknown
}

func flatten(m map[string]any) map[string]any {
	flat := map[string]any{}
	for k, v := range m {
		if nested, ok := v.(map[string]any); ok {
			for nk, nv := range flatten(nested) {
				flat[nk] = nv
			}
			continue
		}
		flat[k] = v
	}

	return flat
}
