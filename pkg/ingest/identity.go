package ingest

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"

	"github.com/brunoleme/ai-travel-assistant/pkg/models"
)

// Object identity is UUIDv5 over a stable key, so re-running any upsert
// with the same inputs lands on the same document.

// VideoUUID derives the video identity from its URL.
func VideoUUID(videoURL string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(videoURL)).String()
}

// CardUUID derives a card identity from the video plus the chunk bounds and
// a short text digest, so a re-chunked video with identical chunks dedupes.
func CardUUID(videoUUID string, chunk models.Chunk) string {
	digest := md5.Sum([]byte(chunk.Text))
	key := fmt.Sprintf("%s:%d:%d:%s", videoUUID, chunk.StartSec, chunk.EndSec, hex.EncodeToString(digest[:])[:10])
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
}

// ProductUUID derives a product identity from its link and question.
func ProductUUID(link, question string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(link+"::"+question)).String()
}

// ProductCardUUID derives the card identity for a product.
func ProductCardUUID(link, question string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(link+"::"+question+"::card")).String()
}
