package db

import (
	"encoding/json"
	"time"
)

// News maps sport.news. One row per canonical article URL.
type News struct {
	NewsID      int64           `gorm:"column:news_id;primaryKey;autoIncrement"`
	URL         string          `gorm:"column:url;type:text;not null;unique"`
	Title       string          `gorm:"column:title;type:text;not null;default:''"`
	Body        string          `gorm:"column:body;type:text;not null;default:''"`
	PublishedAt *time.Time      `gorm:"column:published_at;type:timestamptz"`
	Source      string          `gorm:"column:source;type:text;not null;default:'Championat.com'"`
	Lang        string          `gorm:"column:lang;type:text;not null;default:'ru'"`
	Images      json.RawMessage `gorm:"column:images;type:jsonb"`
	Videos      json.RawMessage `gorm:"column:videos;type:jsonb"`
	CreatedAt   time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (News) TableName() string { return "sport.news" }

// Tag maps sport.tags. Identity is the normalized URL, with a
// case-insensitive name fallback when the URL is absent.
type Tag struct {
	TagID     int64     `gorm:"column:tag_id;primaryKey;autoIncrement"`
	Name      string    `gorm:"column:name;type:text;not null"`
	URL       *string   `gorm:"column:url;type:text;unique"`
	Type      string    `gorm:"column:type;type:text;not null;default:'unknown'"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (Tag) TableName() string { return "sport.tags" }

// NewsArticleTag maps sport.news_article_tags.
type NewsArticleTag struct {
	NewsID    int64     `gorm:"column:news_id;type:bigint;primaryKey"`
	TagID     int64     `gorm:"column:tag_id;type:bigint;primaryKey"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (NewsArticleTag) TableName() string { return "sport.news_article_tags" }

// Entity maps sport.entities: a canonical typed actor.
type Entity struct {
	EntityID  int64     `gorm:"column:entity_id;primaryKey;autoIncrement"`
	Name      string    `gorm:"column:name;type:text;not null;uniqueIndex:uq_entities_name_type"`
	Type      string    `gorm:"column:type;type:text;not null;uniqueIndex:uq_entities_name_type"`
	Lang      *string   `gorm:"column:lang;type:text"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (Entity) TableName() string { return "sport.entities" }

// EntityAlias maps sport.entity_aliases.
type EntityAlias struct {
	AliasID         int64     `gorm:"column:alias_id;primaryKey;autoIncrement"`
	Alias           string    `gorm:"column:alias;type:text;not null"`
	AliasNormalized string    `gorm:"column:alias_normalized;type:text;not null;uniqueIndex:uq_aliases_norm_type"`
	EntityType      string    `gorm:"column:entity_type;type:text;not null;uniqueIndex:uq_aliases_norm_type"`
	EntityID        *int64    `gorm:"column:entity_id;type:bigint"`
	Source          *string   `gorm:"column:source;type:text"`
	Lang            *string   `gorm:"column:lang;type:text"`
	CreatedAt       time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (EntityAlias) TableName() string { return "sport.entity_aliases" }

// NewsEntityAssignment maps sport.news_entity_assignments: at most one
// entity per slot per article.
type NewsEntityAssignment struct {
	NewsID       int64     `gorm:"column:news_id;type:bigint;primaryKey"`
	SportID      *int64    `gorm:"column:sport_id;type:bigint"`
	TournamentID *int64    `gorm:"column:tournament_id;type:bigint"`
	TeamID       *int64    `gorm:"column:team_id;type:bigint"`
	PlayerID     *int64    `gorm:"column:player_id;type:bigint"`
	UpdatedAt    time.Time `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (NewsEntityAssignment) TableName() string { return "sport.news_entity_assignments" }

// ContentFingerprint maps sport.content_fingerprints.
type ContentFingerprint struct {
	NewsID    int64     `gorm:"column:news_id;type:bigint;primaryKey"`
	TitleSig  string    `gorm:"column:title_sig;type:text;not null"`
	EntitySig *string   `gorm:"column:entity_sig;type:text"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (ContentFingerprint) TableName() string { return "sport.content_fingerprints" }

// Story maps sport.stories: the unit of publication.
type Story struct {
	StoryID   int64     `gorm:"column:story_id;primaryKey;autoIncrement"`
	Title     string    `gorm:"column:title;type:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (Story) TableName() string { return "sport.stories" }

// StoryArticle maps sport.story_articles.
type StoryArticle struct {
	StoryID   int64     `gorm:"column:story_id;type:bigint;primaryKey"`
	NewsID    int64     `gorm:"column:news_id;type:bigint;primaryKey"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (StoryArticle) TableName() string { return "sport.story_articles" }

// PublishMap maps sport.publish_map: current published state per item.
// The anchor message id never changes after the first successful send.
type PublishMap struct {
	PublishMapID int64     `gorm:"column:publish_map_id;primaryKey;autoIncrement"`
	ItemType     string    `gorm:"column:item_type;type:text;not null;uniqueIndex:uq_publish_map_item"`
	ItemID       int64     `gorm:"column:item_id;type:bigint;not null;uniqueIndex:uq_publish_map_item"`
	MessageID    int64     `gorm:"column:message_id;type:bigint;not null"`
	Text         string    `gorm:"column:text;type:text;not null;default:''"`
	Mode         string    `gorm:"column:mode;type:text;not null;default:'html'"`
	SentAt       time.Time `gorm:"column:sent_at;type:timestamptz;not null;default:now()"`
}

func (PublishMap) TableName() string { return "sport.publish_map" }

// PublishQueue maps sport.publish_queue.
type PublishQueue struct {
	QueueID     int64      `gorm:"column:queue_id;primaryKey;autoIncrement"`
	ItemType    string     `gorm:"column:item_type;type:text;not null"`
	ItemID      int64      `gorm:"column:item_id;type:bigint;not null"`
	Priority    int        `gorm:"column:priority;type:integer;not null;default:0"`
	Status      string     `gorm:"column:status;type:text;not null;default:'queued'"`
	ScheduledAt *time.Time `gorm:"column:scheduled_at;type:timestamptz"`
	EnqueuedAt  time.Time  `gorm:"column:enqueued_at;type:timestamptz;not null;default:now()"`
	SentAt      *time.Time `gorm:"column:sent_at;type:timestamptz"`
	MessageID   *int64     `gorm:"column:message_id;type:bigint"`
	Error       *string    `gorm:"column:error;type:text"`
	DedupKey    string     `gorm:"column:dedup_key;type:text;not null"`
}

func (PublishQueue) TableName() string { return "sport.publish_queue" }

// PublishEdit maps sport.publish_edits: append-only audit of post-publish
// modifications.
type PublishEdit struct {
	EditID         int64     `gorm:"column:edit_id;primaryKey;autoIncrement"`
	ItemType       string    `gorm:"column:item_type;type:text;not null"`
	ItemID         int64     `gorm:"column:item_id;type:bigint;not null"`
	Action         string    `gorm:"column:action;type:text;not null"`
	MessageID      *int64    `gorm:"column:message_id;type:bigint"`
	ReplyMessageID *int64    `gorm:"column:reply_message_id;type:bigint"`
	OldText        *string   `gorm:"column:old_text;type:text"`
	NewText        *string   `gorm:"column:new_text;type:text"`
	Mode           *string   `gorm:"column:mode;type:text"`
	Error          *string   `gorm:"column:error;type:text"`
	CreatedAt      time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (PublishEdit) TableName() string { return "sport.publish_edits" }

// Digest maps sport.digests.
type Digest struct {
	DigestID  int64     `gorm:"column:digest_id;primaryKey;autoIncrement"`
	Period    string    `gorm:"column:period;type:text;not null;uniqueIndex:uq_digests_window"`
	SinceUTC  time.Time `gorm:"column:since_utc;type:timestamptz;not null;uniqueIndex:uq_digests_window"`
	UntilUTC  time.Time `gorm:"column:until_utc;type:timestamptz;not null;uniqueIndex:uq_digests_window"`
	Title     string    `gorm:"column:title;type:text;not null"`
	Status    string    `gorm:"column:status;type:text;not null;default:'ready'"`
	MessageID *string   `gorm:"column:message_id;type:text"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (Digest) TableName() string { return "sport.digests" }

// DigestItem maps sport.digest_items.
type DigestItem struct {
	DigestItemID  int64 `gorm:"column:digest_item_id;primaryKey;autoIncrement"`
	DigestID      int64 `gorm:"column:digest_id;type:bigint;not null;index"`
	Rank          int   `gorm:"column:rank;type:integer;not null"`
	StoryID       int64 `gorm:"column:story_id;type:bigint;not null"`
	TotalArticles int   `gorm:"column:total_articles;type:integer;not null;default:0"`
}

func (DigestItem) TableName() string { return "sport.digest_items" }

// MonitorLog maps sport.monitor_logs.
type MonitorLog struct {
	MonitorLogID int64           `gorm:"column:monitor_log_id;primaryKey;autoIncrement"`
	TsUTC        time.Time       `gorm:"column:ts_utc;type:timestamptz;not null;default:now()"`
	Metric       string          `gorm:"column:metric;type:text;not null"`
	Value        float64         `gorm:"column:value;type:double precision;not null"`
	Meta         json.RawMessage `gorm:"column:meta;type:jsonb"`
}

func (MonitorLog) TableName() string { return "sport.monitor_logs" }

func autoMigrateModels() []any {
	return []any{
		&News{},
		&Tag{},
		&NewsArticleTag{},
		&Entity{},
		&EntityAlias{},
		&NewsEntityAssignment{},
		&ContentFingerprint{},
		&Story{},
		&StoryArticle{},
		&PublishMap{},
		&PublishQueue{},
		&PublishEdit{},
		&Digest{},
		&DigestItem{},
		&MonitorLog{},
	}
}
