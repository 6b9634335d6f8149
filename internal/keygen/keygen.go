// Package keygen builds namespaced storage keys. Every key carries a
// random UUID so concurrent calls never collide even within the same
// clock tick; nothing here touches the network or the database.
package keygen

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RawVideoKey shards raw uploads by date under the creator namespace:
// {creator}/videos/{yyyy}/{mm}/{dd}/{uuid}/raw/{filename}
func RawVideoKey(creatorID, filename string) string {
	d := time.Now().UTC()
	return fmt.Sprintf("%s/videos/%d/%02d/%02d/%s/raw/%s",
		creatorID, d.Year(), d.Month(), d.Day(), uuid.NewString(), filename)
}

// PostMediaImageKey places still-image uploads for a post:
// post-media/{kind}/{creator}/{post}/{uuid}.{ext}
func PostMediaImageKey(kind, creatorID, postID, ext string) string {
	return fmt.Sprintf("post-media/%s/%s/%s/%s.%s", kind, creatorID, postID, uuid.NewString(), ext)
}

// PostMediaVideoKey places video uploads for a post:
// post-media/{kind}/{creator}/{post}/{uuid}.{ext}
func PostMediaVideoKey(kind, creatorID, postID, ext string) string {
	return fmt.Sprintf("post-media/%s/%s/%s/%s.%s", kind, creatorID, postID, uuid.NewString(), ext)
}

// AccountAssetKey names profile assets (avatar, header):
// profiles/{creator}/{kind}/{timestamp}_{uuid}.{ext}
func AccountAssetKey(creatorID, kind, ext string) string {
	return fmt.Sprintf("profiles/%s/%s/%s_%s.%s",
		creatorID, kind, time.Now().UTC().Format("20060102_150405"), uuid.NewString(), ext)
}

// IdentityKey names KYC documents. The submission id already namespaces
// retries, so the key is fully deterministic.
func IdentityKey(creatorID, submissionID, kind, ext string) string {
	return fmt.Sprintf("%s/identity/%s/%s.%s", creatorID, submissionID, kind, ext)
}

// TranscodeOutputKey is the destination for a single-file rendition:
// transcode-mc/{creator}/{post}/{asset}/{uuid}.mp4
func TranscodeOutputKey(creatorID, postID, assetID string) string {
	return fmt.Sprintf("transcode-mc/%s/%s/%s/%s.mp4", creatorID, postID, assetID, uuid.NewString())
}

// HLSOutputPrefix is the destination directory for an HLS ladder. The
// trailing slash is part of the contract: the backend treats the prefix
// as a directory only when it ends in one.
func HLSOutputPrefix(creatorID, postID, assetID string) string {
	return fmt.Sprintf("hls/%s/%s/%s/%s/", creatorID, postID, assetID, uuid.NewString())
}

// VariantKey derives a sibling key from a base output key by suffixing
// the stem: ".../{uuid}.jpg" + "_thumb" + "webp" -> ".../{uuid}_thumb.webp".
// Derived artifacts always hang off the base key so the whole family of
// variants stays addressable from one stored key.
func VariantKey(baseKey, suffix, ext string) string {
	stem := baseKey
	if i := strings.LastIndex(baseKey, "."); i > strings.LastIndex(baseKey, "/") {
		stem = baseKey[:i]
	}
	return fmt.Sprintf("%s_%s.%s", stem, suffix, ext)
}
