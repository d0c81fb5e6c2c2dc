// Generates the embedded announcement clips under assets/audio. Run it from
// the repository root whenever the phrases change.
package main

import (
	"fmt"

	"orpheus/tts"

	"github.com/Duckduckgot/gtts"
	"github.com/Duckduckgot/gtts/voices"
)

var speech = gtts.Speech{Folder: "assets/audio", Language: voices.English}

func main() {
	Audio("Now playing")
}

func Audio(text string) {
	// replace special characters and spaces to create a valid filename
	filename, err := tts.SanitizeName(text)
	handleError(filename, err)
	handleError(speech.CreateSpeechFile(text, filename))
}

func handleError(_ string, err error) {
	if err != nil {
		panic(fmt.Sprintf("Error generating audio: %s", err.Error()))
	}
}
