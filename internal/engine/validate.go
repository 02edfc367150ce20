package engine

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	minLoginIdLen     = 5
	maxLoginIdLen     = 100
	minDisplayNameLen = 3
	maxDisplayNameLen = 50
	minPasswordLen    = 6
	maxColorLen       = 10
	minRoomNameLen    = 3
	maxRoomNameLen    = 50
	minRoomPassLen    = 3
	maxChatLen        = 500
	maxVoiceBytes     = 1 << 20
	maxImageBytes     = 5 << 20
	maxImageDimension = 4096
	maxBuildingIdLen  = 100
	maxPrefabIdLen    = 100
	maxEntityDataLen  = 64 << 10

	loginSeparator = "@"
)

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func lengthBetween(s string, min, max int) bool {
	n := utf8.RuneCountInString(s)
	return n >= min && n <= max
}

func validateLoginId(loginId string) error {
	if blank(loginId) || !lengthBetween(loginId, minLoginIdLen, maxLoginIdLen) || !strings.Contains(loginId, loginSeparator) {
		return ValidationError("login id must be a valid email address")
	}
	return nil
}

func validateDisplayName(name string) error {
	if blank(name) || !lengthBetween(name, minDisplayNameLen, maxDisplayNameLen) {
		return ValidationError(fmt.Sprintf("display name must be between %d and %d characters", minDisplayNameLen, maxDisplayNameLen))
	}
	return nil
}

func validatePassword(password string) error {
	if blank(password) || utf8.RuneCountInString(password) < minPasswordLen {
		return ValidationError(fmt.Sprintf("password must be at least %d characters", minPasswordLen))
	}
	return nil
}

func validateColor(color string) error {
	if blank(color) || utf8.RuneCountInString(color) > maxColorLen {
		return ValidationError(fmt.Sprintf("color must be between 1 and %d characters", maxColorLen))
	}
	return nil
}

func validateRoomName(name string) error {
	if blank(name) || !lengthBetween(name, minRoomNameLen, maxRoomNameLen) {
		return ValidationError(fmt.Sprintf("room name must be between %d and %d characters", minRoomNameLen, maxRoomNameLen))
	}
	return nil
}

func validateRoomPassword(password string) error {
	if blank(password) || utf8.RuneCountInString(password) < minRoomPassLen {
		return ValidationError(fmt.Sprintf("room password must be at least %d characters", minRoomPassLen))
	}
	return nil
}

func validateBuildingId(id string) error {
	if blank(id) || utf8.RuneCountInString(id) > maxBuildingIdLen {
		return ValidationError(fmt.Sprintf("building id must be between 1 and %d characters", maxBuildingIdLen))
	}
	return nil
}

func validatePrefabId(id string) error {
	if blank(id) || utf8.RuneCountInString(id) > maxPrefabIdLen {
		return ValidationError(fmt.Sprintf("prefab id must be between 1 and %d characters", maxPrefabIdLen))
	}
	return nil
}

func validateEntityData(data string) error {
	if len(data) > maxEntityDataLen {
		return ValidationError(fmt.Sprintf("entity data must not exceed %d bytes", maxEntityDataLen))
	}
	return nil
}

func validateImage(data []byte, width, height int) error {
	if len(data) == 0 || len(data) > maxImageBytes {
		return ValidationError(fmt.Sprintf("image must be between 1 and %d bytes", maxImageBytes))
	}
	if width <= 0 || height <= 0 || width > maxImageDimension || height > maxImageDimension {
		return ValidationError(fmt.Sprintf("image dimensions must be between 1 and %d", maxImageDimension))
	}
	return nil
}
