package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
)

const (
	MimeText        = "text/"
	MimeOctetStream = "application/octet-stream"
)

// SOP 文件上传限制
const (
	MaxSOPFileSize = 2 << 20
	MinSOPLength   = 100
)

var (
	AllowedSOPExtensions = []string{".txt", ".md", ".markdown", ".html", ".htm"}
)
