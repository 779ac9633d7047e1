package cloudinary

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestBuildPublicID(t *testing.T) {
	at := time.Unix(1700000000, 0)

	require.Equal(t, "inclined-plane-fig-1-1700000000", buildPublicID("Inclined Plane (fig 1).png", at))
	require.Equal(t, "attachment-1700000000", buildPublicID("???.svg", at))
	require.Equal(t, "diagram-1700000000", buildPublicID("../../diagram.pdf", at))
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(Config{CloudName: "demo"}, zerolog.Nop())
	require.Error(t, err)
}

func TestNewAppliesDefaultFolder(t *testing.T) {
	storage, err := New(Config{CloudName: "demo", APIKey: "key", APISecret: "secret"}, zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, DefaultFolder, storage.folder)
}
