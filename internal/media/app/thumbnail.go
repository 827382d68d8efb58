package app

import (
	"fmt"
	"os/exec"
)

// MakeThumbnail renders inputPath into a 320px-wide JPEG at outputPath.
// ffmpeg handles every image format the upload path accepts, so there
// is no per-format branching here.
func MakeThumbnail(inputPath, outputPath string) error {
	cmdArgs := []string{
		"-y",
		"-i", inputPath,
		"-vf", "scale=320:-1",
		"-frames:v", "1",
		outputPath,
	}
	cmd := exec.Command("ffmpeg", cmdArgs...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg thumbnail failed: %v, output: %s", err, string(output))
	}
	return nil
}
