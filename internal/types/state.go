package types

// OperationalSnapshot holds read-only platform and clock facts
type OperationalSnapshot struct {
	OSName          string `json:"os_name"`
	OSRelease       string `json:"os_release"`
	OSVersion       string `json:"os_version"`
	Machine         string `json:"machine"`
	CurrentDatetime string `json:"current_datetime"`
	BootDatetime    string `json:"boot_datetime"`
}

// DatetimeLayout is the only datetime form produced and accepted
const DatetimeLayout = "2006-01-02T15:04:05Z"
