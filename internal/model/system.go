package model

// VersionInfo reports application and schema versions.
type VersionInfo struct {
	AppVersion string `json:"appVersion"`
	DbVersion  int64  `json:"dbVersion"`
}
