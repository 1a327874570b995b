package logic

import (
	"fmt"

	"github.com/avct/uasurfer"
)

// UserAgentProfile is the coarse device description derived from a
// User-Agent header. It carries no more detail than the anonymized UA.
type UserAgentProfile struct {
	DeviceType string `json:"device_type"`
	OS         string `json:"os"`
	Browser    string `json:"browser"`
	IsBot      bool   `json:"is_bot"`
}

// ResolveUserAgentProfile parses a raw User-Agent string using uasurfer.
func ResolveUserAgentProfile(uaString string) UserAgentProfile {
	u := uasurfer.Parse(uaString)

	var deviceType string
	switch u.DeviceType {
	case uasurfer.DeviceComputer:
		deviceType = "desktop"
	case uasurfer.DevicePhone:
		deviceType = "mobile"
	case uasurfer.DeviceTablet:
		deviceType = "tablet"
	default:
		deviceType = "other"
	}

	osName := fmt.Sprintf("%s %s", u.OS.Platform.String(), u.OS.Name.String())
	v := u.OS.Version
	fullOS := fmt.Sprintf("%s %d.%d.%d", osName, v.Major, v.Minor, v.Patch)

	bv := u.Browser.Version
	fullBrowser := fmt.Sprintf("%s %d.%d.%d", u.Browser.Name.String(), bv.Major, bv.Minor, bv.Patch)

	return UserAgentProfile{
		DeviceType: deviceType,
		OS:         fullOS,
		Browser:    fullBrowser,
		IsBot:      u.IsBot(),
	}
}
