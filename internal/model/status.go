package model

// StatusClass buckets status codes for display
type StatusClass string

const (
	StatusInfo        StatusClass = "info"
	StatusSuccess     StatusClass = "success"
	StatusRedirect    StatusClass = "redirect"
	StatusClientError StatusClass = "client-error"
	StatusServerError StatusClass = "server-error"
)

// ClassifyStatus maps a status code to its bucket
func ClassifyStatus(code int) StatusClass {
	switch {
	case code < 200:
		return StatusInfo
	case code < 300:
		return StatusSuccess
	case code < 400:
		return StatusRedirect
	case code < 500:
		return StatusClientError
	default:
		return StatusServerError
	}
}
