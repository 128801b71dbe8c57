package httpapi

// defaultMaxUploadBytes caps POST /subtitle bodies when Deps does not
// override it.
const defaultMaxUploadBytes int64 = 500 << 20

// supportedAudioExts are the upload extensions accepted by POST /subtitle.
var supportedAudioExts = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".m4a":  true,
	".flac": true,
	".ogg":  true,
	".opus": true,
	".webm": true,
}
