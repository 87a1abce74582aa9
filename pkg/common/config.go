package common

type ConfigKey int

const (
	StageKey ConfigKey = iota
	VerboseKey
	HostKey
	PortKey
	LocalAddressKey
	SqlitePathKey
	SmtpEndpointKey
	SmtpUsernameKey
	SmtpPasswordKey
	EmailFromKey
	AdminEmailKey
	ListFetchIntervalKey
	InstanceCheckIntervalKey
	InstanceStatsIntervalKey
	CleanupIntervalKey
	InstanceListURLKey
	ProfilePathKey
	RSSPathKey
	AboutPathKey
	ConnectivityPathKey
	ProfileNameKey
	ProfilePostsMinKey
	RSSContentKey
	AdditionalHostsKey
	AdditionalHostCountryKey
	PingRangeKey
	AutoMuteKey
	SourceGitURLKey
	SourceGitBranchKey
	GitScratchFolderKey
	ErrorRetentionPerHostKey
	WebsiteURLKey
	DisableAlertMailsKey
	MailAlertTimeoutSecondsKey
	// Add new fields _above_
	COMMON_CONFIG_KEYS_COUNT
)
