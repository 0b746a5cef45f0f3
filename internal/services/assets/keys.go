package assets

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// CharacterKey is "characters/<id>-<asset><ext>", the extension taken from
// the source URL and defaulting to .jpg.
func CharacterKey(characterID int64, asset, sourceURL string) string {
	return fmt.Sprintf("characters/%d-%s%s", characterID, asset, extensionOf(sourceURL))
}

// ItemIconKey is "items/<item-id>.jpg".
func ItemIconKey(itemID int64) string {
	return fmt.Sprintf("items/%d.jpg", itemID)
}

// SocketKey is "sockets/<item-id>-<socket-type>.jpg".
func SocketKey(itemID int64, socketType string) string {
	return fmt.Sprintf("sockets/%d-%s.jpg", itemID, strings.ToLower(socketType))
}

// InstanceKey is "instances/<instance-id>.jpg".
func InstanceKey(instanceID int64) string {
	return fmt.Sprintf("instances/%d.jpg", instanceID)
}

func extensionOf(sourceURL string) string {
	p := sourceURL
	if u, err := url.Parse(sourceURL); err == nil {
		p = u.Path
	}
	switch ext := strings.ToLower(path.Ext(p)); ext {
	case ".png", ".jpg", ".jpeg":
		return ext
	default:
		return ".jpg"
	}
}
