// Package constants contains names and defaults shared across setdeck.
package constants

const (
	// AppName is the application name used for XDG directory paths.
	AppName = "setdeck"

	// LogFilename is the default log file name.
	LogFilename = "setdeck.log"

	// DatabaseFilename is the sqlite database holding disabled preset lists.
	DatabaseFilename = "state.db"

	// ConfigFilename is the configuration file name inside the XDG config dir.
	ConfigFilename = "config.yml"

	// VaultDirName is the directory under the data dir holding bundle backups.
	VaultDirName = "vault"
)

const (
	// DefaultPage is the page every entry belongs to unless told otherwise.
	DefaultPage = "Controls"

	// SettingExt is the extension of preset files inside bundles.
	SettingExt = ".setting"

	// ThumbnailExt is the extension of preset thumbnails inside bundles.
	ThumbnailExt = ".png"

	// BundleExt is the extension of archive-packaged preset bundles.
	BundleExt = ".zip"
)
