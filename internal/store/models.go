package store

// Credential is a set of object storage keys referenced by s3_input_id and s3_output_id.
type Credential struct {
	ID        uint   `gorm:"primaryKey"`
	AccessKey string `gorm:"not null"`
	SecretKey string `gorm:"not null"`
	Region    string `gorm:"default:ap-south-1"`
}

func (Credential) TableName() string {
	return "s3_credentials"
}

type AudioTrack struct {
	ID       uint   `gorm:"primaryKey"`
	JobID    string `gorm:"not null;index"`
	Language string `gorm:"not null"`
	FilePath string `gorm:"not null"`
}

func (AudioTrack) TableName() string {
	return "job_audio_tracks"
}

type SubtitleTrack struct {
	ID       uint   `gorm:"primaryKey"`
	JobID    string `gorm:"not null;index"`
	Language string `gorm:"not null"`
	FilePath string `gorm:"not null"`
}

func (SubtitleTrack) TableName() string {
	return "job_subtitle_tracks"
}

// Models lists everything AutoMigrate creates.
var Models = []interface{}{&Credential{}, &AudioTrack{}, &SubtitleTrack{}}
