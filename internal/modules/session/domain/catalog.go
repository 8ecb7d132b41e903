package domain

type CatalogEntry struct {
	LibraryID       string          `yaml:"id"`
	Title           string          `yaml:"title"`
	DefaultDuration int             `yaml:"duration"`
	Content         string          `yaml:"content"`
	Phases          []TimelinePhase `yaml:"phases"`
	Tags            []string        `yaml:"tags"`
	IsBoosterModule bool            `yaml:"booster"`
}

// Library ids the timeline generator relies on.
const (
	LibraryGrounding             = "grounding"
	LibraryBreathMeditation      = "breath-meditation"
	LibraryMusicListening        = "music-listening"
	LibraryOpenAwareness         = "open-awareness"
	LibraryHeartAwareness        = "heart-awareness"
	LibraryDeepMeditation        = "deep-meditation"
	LibraryMusicJourney          = "music-journey"
	LibraryOpenSpace             = "open-space"
	LibraryJournalingReflection  = "journaling-reflection"
	LibraryIntegrationMeditation = "integration-meditation"
	LibraryClosingRitual         = "closing-ritual"
	LibraryBooster               = "booster-consideration"
)

// Activity preference tags collected at intake.
const (
	PrefBreathing  = "breathing"
	PrefMusic      = "music"
	PrefJournaling = "journaling"
	PrefMeditation = "meditation"
)
