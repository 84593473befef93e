package db

// timeLayout is fixed width and UTC so timestamps compare correctly as text.
const timeLayout = "2006-01-02T15:04:05.000Z"

// Balance record sources.
const (
	SourceAugment = "augment"
	SourceOrb     = "orb"
	SourceScraper = "scraper"
)

// minUsageDurationMinutes is the floor applied to the gap between readings.
const minUsageDurationMinutes = 1
