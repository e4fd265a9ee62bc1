package helpers

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
)

func GetSplitPart(target string, separate string, index int) (string, error) {
	parts := strings.Split(target, separate)
	if index >= len(parts) {
		return "", errors.New("index out of range")
	}
	return parts[index], nil
}

// TrimKnownPrefix strips prefix from value; values without the prefix are returned unchanged
func TrimKnownPrefix(value, prefix string) string {
	if prefix == "" {
		return value
	}
	return strings.TrimPrefix(value, prefix)
}

// CollectionFromURL returns the collection and product type segments of a
// /game/{collection}/{productType} URL. A missing scheme is assumed to be https.
func CollectionFromURL(rawURL string) (string, string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", "", err
	}
	if u.Host == "" && u.Scheme == "" && !strings.HasPrefix(u.Path, "/") {
		if u, err = url.Parse("https://" + strings.TrimSpace(rawURL)); err != nil {
			return "", "", err
		}
	}

	segments := strings.Trim(path.Clean("/"+u.Path), "/")
	if prefix, _ := GetSplitPart(segments, "/", 0); prefix != "game" {
		return "", "", fmt.Errorf("url %q is not a /game/{collection}/{productType} page", rawURL)
	}
	collection, err := GetSplitPart(segments, "/", 1)
	if err != nil {
		return "", "", errors.New("url has no collection/product path")
	}
	productType, err := GetSplitPart(segments, "/", 2)
	if err != nil || collection == "" || productType == "" {
		return "", "", errors.New("url has no collection/product path")
	}
	return collection, productType, nil
}
