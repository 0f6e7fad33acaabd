package logging

import (
	"errors"
	"fmt"
	"log/slog"
)

// IconKey is the attribute key carrying an Icon.
const IconKey = "icon"

// ErrUnknownIcon is returned by the handler when a record carries an icon
// that is not one of the declared constants.
var ErrUnknownIcon = errors.New("logging: unknown icon")

// Icon tags a log record with a category marker.
type Icon string

const (
	IconDefault Icon = "📋"

	IconSuccess  Icon = "✅"
	IconError    Icon = "❌"
	IconWarning  Icon = "⚠️"
	IconCritical Icon = "🔴"
	IconInfo     Icon = "ℹ️"

	IconStart      Icon = "🚀"
	IconProcessing Icon = "🔄"
	IconDetection  Icon = "🔍"
	IconComplete   Icon = "✨"

	IconModel     Icon = "🧠"
	IconTool      Icon = "🔧"
	IconProcessor Icon = "⚙️"
	IconAdapter   Icon = "🔌"

	IconAuth     Icon = "🔐"
	IconDatabase Icon = "💾"
	IconNetwork  Icon = "🌐"
	IconCache    Icon = "📦"

	IconHealthcheck Icon = "❤️"
	IconValidation  Icon = "✓"
	IconTimer       Icon = "🕒"
	IconLatency     Icon = "⚡"
	IconRetry       Icon = "🔁"

	IconFile     Icon = "📄"
	IconJSON     Icon = "📝"
	IconUpload   Icon = "📤"
	IconDownload Icon = "📥"

	IconSecurity  Icon = "🔒"
	IconForbidden Icon = "🚫"
)

var knownIcons = map[Icon]struct{}{
	IconDefault: {}, IconSuccess: {}, IconError: {}, IconWarning: {}, IconCritical: {},
	IconInfo: {}, IconStart: {}, IconProcessing: {}, IconDetection: {}, IconComplete: {},
	IconModel: {}, IconTool: {}, IconProcessor: {}, IconAdapter: {}, IconAuth: {},
	IconDatabase: {}, IconNetwork: {}, IconCache: {}, IconHealthcheck: {}, IconValidation: {},
	IconTimer: {}, IconLatency: {}, IconRetry: {}, IconFile: {}, IconJSON: {},
	IconUpload: {}, IconDownload: {}, IconSecurity: {}, IconForbidden: {},
}

// Attr returns the icon as a slog attribute.
func (i Icon) Attr() slog.Attr {
	return slog.String(IconKey, string(i))
}

// ParseIcon validates s as a declared Icon.
func ParseIcon(s string) (Icon, error) {
	icon := Icon(s)
	if _, ok := knownIcons[icon]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownIcon, s)
	}
	return icon, nil
}
