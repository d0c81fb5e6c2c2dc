// Package assets embeds the pregenerated announcement clips and serves them
// decoded, so the voice path never touches the filesystem.
package assets

import (
	"embed"
	"io/fs"
	"log"
	"strings"
	"sync"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
)

//go:embed audio
var audioFS embed.FS

// NowPlayingClip is the generic announcement used when no synthesized clip
// is available. Regenerate the embedded clips with go run ./tools.
const NowPlayingClip = "audio/now_playing.mp3"

// Clip is a fully decoded audio clip held in memory.
type Clip struct {
	Buffer *beep.Buffer
	Format beep.Format
}

var (
	clips    map[string]*Clip
	loadOnce sync.Once
)

// Get returns the decoded clip embedded under name, loading the clip set on
// first use.
func Get(name string) (*Clip, bool) {
	loadOnce.Do(loadClips)
	clip, ok := clips[name]
	return clip, ok
}

// loadClips decodes every embedded MP3 once at first access. A clip that
// fails to decode is logged and skipped; callers fall back gracefully.
func loadClips() {
	clips = make(map[string]*Clip)

	err := fs.WalkDir(audioFS, "audio", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".mp3") {
			return err
		}
		clip, decodeErr := decodeClip(path)
		if decodeErr != nil {
			log.Printf("Skipping embedded clip %s: %v", path, decodeErr)
			return nil
		}
		clips[path] = clip
		return nil
	})
	if err != nil {
		log.Printf("Failed to walk embedded audio: %v", err)
	}

	log.Printf("Loaded %d embedded audio clips", len(clips))
}

func decodeClip(path string) (*Clip, error) {
	file, err := audioFS.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	streamer, format, err := mp3.Decode(file)
	if err != nil {
		return nil, err
	}
	defer streamer.Close()

	buffer := beep.NewBuffer(format)
	buffer.Append(streamer)
	return &Clip{Buffer: buffer, Format: format}, nil
}
