// package formatter renders playlists, conversion results and manual instructions as CSV, Markdown, plain text or JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/shared"
)

// Format is an export format accepted by [Export].
type Format string

const (
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "md"
	FormatText     Format = "text"
)

// ParseFormat maps a flag value to a [Format]. Empty input selects text.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q (want json, csv, md or text)", shared.ErrInvalidArgument, s)
	}
}

// Export renders playlist in format.
func Export(playlist *models.Playlist, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return shared.MarshalJSON(playlist, true)
	case FormatCSV:
		return ExportToCSV(playlist)
	case FormatMarkdown:
		return ExportToMarkdown(playlist, "")
	case FormatText:
		return ExportToText(playlist)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
}

// ExportToCSV converts a Playlist to CSV format with columns: Position, ID, Name, Artists, Album, Duration, URL
func ExportToCSV(playlist *models.Playlist) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Position", "ID", "Name", "Artists", "Album", "Duration", "URL"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, track := range playlist.Tracks {
		record := []string{
			strconv.Itoa(i + 1),
			track.ID,
			track.Name,
			track.ArtistLine(),
			track.Album,
			shared.FormatDuration(track.DurationMs),
			track.URL(playlist.Platform),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a Playlist to Markdown format with optional cover image
func ExportToMarkdown(playlist *models.Playlist, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", playlist.Name)

	if imageFilename != "" {
		fmt.Fprintf(&buf, "![Cover](%s)\n\n", imageFilename)
	}

	if playlist.Description != "" {
		fmt.Fprintf(&buf, "**Description**: %s\n\n", playlist.Description)
	}

	fmt.Fprintf(&buf, "**Tracks**: %d\n", len(playlist.Tracks))
	if playlist.Platform != "" {
		fmt.Fprintf(&buf, "**Platform**: %s\n", playlist.Platform.DisplayName())
	}
	if playlist.ID != "" && playlist.Platform != "" {
		fmt.Fprintf(&buf, "**Link**: %s\n", models.PlaylistURL(playlist.Platform, playlist.ID))
	}

	buf.WriteString("\n## Tracks\n\n")
	for i, track := range playlist.Tracks {
		albumPart := ""
		if track.Album != "" {
			albumPart = fmt.Sprintf(" (%s)", track.Album)
		}
		fmt.Fprintf(&buf, "%d. %s - %s%s [%s]\n", i+1, track.ArtistLine(), track.Name, albumPart, shared.FormatDuration(track.DurationMs))
	}

	return buf.Bytes(), nil
}

// ExportToText converts a Playlist to plain text format
func ExportToText(playlist *models.Playlist) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", playlist.Name)
	if playlist.Description != "" {
		fmt.Fprintf(&buf, "Description: %s\n", playlist.Description)
	}
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(playlist.Tracks))

	for i, track := range playlist.Tracks {
		fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, track.ArtistLine(), track.Name)
	}

	return buf.Bytes(), nil
}

// ToMetadataJSON generates a JSON representation of playlist metadata (without tracks)
func ToMetadataJSON(playlist models.Playlist) ([]byte, error) {
	playlist.Tracks = nil
	return shared.MarshalJSON(playlist, true)
}

// Instructions renders the step-by-step guide used when a playlist has to be created by hand on YouTube Music.
//
// Every track is listed with its primary artist, in source order.
func Instructions(playlistName string, tracks []models.Track) string {
	lines := make([]string, len(tracks))
	for i, track := range tracks {
		lines[i] = fmt.Sprintf("%d. %s - %s", i+1, track.Name, track.PrimaryArtist())
	}

	var b strings.Builder
	fmt.Fprintf(&b, "To create \"%s\" on YouTube Music:\n\n", playlistName)
	b.WriteString("1. Go to https://music.youtube.com\n")
	fmt.Fprintf(&b, "2. Create a new playlist named \"%s\"\n", playlistName)
	b.WriteString("3. Search for and add these tracks:\n\n")
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n\nNote: Due to YouTube's OAuth restrictions, automatic playlist creation requires additional verification.\n")
	return b.String()
}

// SearchQueries returns the query a user would type to find each track by hand.
func SearchQueries(tracks []models.Track) []string {
	queries := make([]string, len(tracks))
	for i, track := range tracks {
		queries[i] = strings.TrimSpace(track.Name + " " + track.PrimaryArtist())
	}
	return queries
}

// FailedTracks renders the unmatched tracks of a conversion in format.
func FailedTracks(result *models.ConversionResult, format Format) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("%w: no conversion result", shared.ErrInvalidInput)
	}
	pl := &models.Playlist{
		Name:        "Unmatched tracks",
		Description: result.Message,
		Tracks:      result.FailedTracks,
		TotalTracks: len(result.FailedTracks),
	}
	if format == FormatJSON {
		return shared.MarshalJSON(result.FailedTracks, true)
	}
	return Export(pl, format)
}

// Summary renders a short plain text report of a conversion.
func Summary(result *models.ConversionResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", result.Message)
	fmt.Fprintf(&b, "Matched: %d/%d\n", result.MatchedTracks, result.TotalTracks)
	if result.PlaylistURL != "" {
		fmt.Fprintf(&b, "Playlist: %s\n", result.PlaylistURL)
	}
	if len(result.FailedTracks) > 0 {
		fmt.Fprintf(&b, "\nUnmatched (%d):\n", len(result.FailedTracks))
		for i, track := range result.FailedTracks {
			fmt.Fprintf(&b, "%d. %s - %s\n", i+1, track.ArtistLine(), track.Name)
		}
	}
	return b.String()
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	TracksFile   string
	MetadataFile string
}

// WriteCSVExport exports a playlist to CSV format with accompanying metadata JSON file.
//
// Defaults to playlist ID as the base filename & creates {base}_tracks.csv and {base}_metadata.json
func WriteCSVExport(playlist *models.Playlist, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = playlist.ID
	}

	csvData, err := ExportToCSV(playlist)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	tracksFile := baseFilepath + "_tracks.csv"
	if err := os.WriteFile(tracksFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(*playlist)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{
		TracksFile:   tracksFile,
		MetadataFile: metadataFile,
	}, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory  string
	Files      []string
	CoverImage string
}

// WriteMarkdownExport exports a playlist to Markdown format in a dedicated directory.
//
// Directory name defaults to the playlist ID. When the playlist has an ImageURL the cover is downloaded
// next to the README; a failed download only drops the image.
func WriteMarkdownExport(playlist *models.Playlist, outputDir string) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = playlist.ID
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{
		Directory: outputDir,
		Files:     []string{},
	}

	var coverImageFilename string
	if playlist.ImageURL != "" {
		if imageData, err := DownloadImage(playlist.ImageURL); err == nil {
			coverImagePath := filepath.Join(outputDir, "cover.jpg")
			if err := os.WriteFile(coverImagePath, imageData, 0644); err == nil {
				coverImageFilename = "cover.jpg"
				result.CoverImage = coverImagePath
				result.Files = append(result.Files, coverImagePath)
			}
		}
	}

	mdData, err := ExportToMarkdown(playlist, coverImageFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	result.Files = append(result.Files, mdFile)

	return result, nil
}

// WriteFile writes rendered output to path, creating parent directories.
func WriteFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
