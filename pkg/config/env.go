package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/0xpr03/nitter-status/pkg/common"
)

var (
	errEmptyEnvVar  = errors.New("environment variable is empty")
	errEmptyEnvName = errors.New("environment variable name is empty")
)

type envConfigValue struct {
	key   common.ConfigKey
	value string
}

var _ common.ConfigItem = (*envConfigValue)(nil)

var (
	configKeyToEnvName []string
	configKeyStrMux     sync.Mutex
)

func init() {
	configKeyStrMux.Lock()
	defer configKeyStrMux.Unlock()

	if len(configKeyToEnvName) < int(common.COMMON_CONFIG_KEYS_COUNT) {
		configKeyToEnvName = make([]string, common.COMMON_CONFIG_KEYS_COUNT)
	}

	configKeyToEnvName[common.StageKey] = "STAGE"
	configKeyToEnvName[common.VerboseKey] = "NS_VERBOSE"
	configKeyToEnvName[common.HostKey] = "NS_HOST"
	configKeyToEnvName[common.PortKey] = "NS_PORT"
	configKeyToEnvName[common.LocalAddressKey] = "NS_LOCAL_ADDRESS"
	configKeyToEnvName[common.SqlitePathKey] = "NS_SQLITE_PATH"
	configKeyToEnvName[common.SmtpEndpointKey] = "SMTP_ENDPOINT"
	configKeyToEnvName[common.SmtpUsernameKey] = "SMTP_USERNAME"
	configKeyToEnvName[common.SmtpPasswordKey] = "SMTP_PASSWORD"
	configKeyToEnvName[common.EmailFromKey] = "NS_EMAIL_FROM"
	configKeyToEnvName[common.AdminEmailKey] = "NS_ADMIN_EMAIL"
	configKeyToEnvName[common.ListFetchIntervalKey] = "NS_LIST_FETCH_INTERVAL"
	configKeyToEnvName[common.InstanceCheckIntervalKey] = "NS_INSTANCE_CHECK_INTERVAL"
	configKeyToEnvName[common.InstanceStatsIntervalKey] = "NS_INSTANCE_STATS_INTERVAL"
	configKeyToEnvName[common.CleanupIntervalKey] = "NS_CLEANUP_INTERVAL"
	configKeyToEnvName[common.InstanceListURLKey] = "NS_INSTANCE_LIST_URL"
	configKeyToEnvName[common.ProfilePathKey] = "NS_PROFILE_PATH"
	configKeyToEnvName[common.RSSPathKey] = "NS_RSS_PATH"
	configKeyToEnvName[common.AboutPathKey] = "NS_ABOUT_PATH"
	configKeyToEnvName[common.ConnectivityPathKey] = "NS_CONNECTIVITY_PATH"
	configKeyToEnvName[common.ProfileNameKey] = "NS_PROFILE_NAME"
	configKeyToEnvName[common.ProfilePostsMinKey] = "NS_PROFILE_POSTS_MIN"
	configKeyToEnvName[common.RSSContentKey] = "NS_RSS_CONTENT"
	configKeyToEnvName[common.AdditionalHostsKey] = "NS_ADDITIONAL_HOSTS"
	configKeyToEnvName[common.AdditionalHostCountryKey] = "NS_ADDITIONAL_HOST_COUNTRY"
	configKeyToEnvName[common.PingRangeKey] = "NS_PING_RANGE"
	configKeyToEnvName[common.AutoMuteKey] = "NS_AUTO_MUTE"
	configKeyToEnvName[common.SourceGitURLKey] = "NS_SOURCE_GIT_URL"
	configKeyToEnvName[common.SourceGitBranchKey] = "NS_SOURCE_GIT_BRANCH"
	configKeyToEnvName[common.GitScratchFolderKey] = "NS_GIT_SCRATCH_FOLDER"
	configKeyToEnvName[common.ErrorRetentionPerHostKey] = "NS_ERROR_RETENTION_PER_HOST"
	configKeyToEnvName[common.WebsiteURLKey] = "NS_WEBSITE_URL"
	configKeyToEnvName[common.DisableAlertMailsKey] = "NS_DISABLE_ALERT_MAILS"
	configKeyToEnvName[common.MailAlertTimeoutSecondsKey] = "NS_MAIL_ALERT_TIMEOUT_SECONDS"

	for i, v := range configKeyToEnvName {
		if len(v) == 0 {
			panic(fmt.Sprintf("found unconfigured value for key: %v", i))
		}
	}
}

func RegisterEnvNameForConfigKey(key common.ConfigKey, s string) error {
	if len(s) == 0 {
		return errEmptyEnvName
	}

	configKeyStrMux.Lock()
	defer configKeyStrMux.Unlock()

	if int(key) >= len(configKeyToEnvName) {
		newSlice := make([]string, int(key)+1)
		copy(newSlice, configKeyToEnvName)
		configKeyToEnvName = newSlice
	}

	if configKeyToEnvName[key] != "" {
		return fmt.Errorf("config: duplicate env name registration for config key %v", key)
	}

	configKeyToEnvName[key] = s
	return nil
}

func (v *envConfigValue) Key() common.ConfigKey {
	return v.key
}

func (v *envConfigValue) Value() string {
	return v.value
}

func (v *envConfigValue) Update(getenv func(string) string) error {
	var name string
	if int(v.key) < len(configKeyToEnvName) {
		name = configKeyToEnvName[v.key]
	}
	if len(name) == 0 {
		return errEmptyEnvName
	}

	value := getenv(name)
	v.value = value
	if len(value) == 0 {
		return errEmptyEnvVar
	}

	return nil
}

type envConfig struct {
	lock   sync.Mutex
	items  map[common.ConfigKey]*envConfigValue
	getenv func(string) string
}

var _ common.ConfigStore = (*envConfig)(nil)

func NewEnvConfig(getenv func(string) string) *envConfig {
	return &envConfig{
		items:  make(map[common.ConfigKey]*envConfigValue),
		getenv: getenv,
	}
}

func (c *envConfig) Get(key common.ConfigKey) common.ConfigItem {
	c.lock.Lock()
	defer c.lock.Unlock()

	item, ok := c.items[key]
	if ok {
		return item
	}

	var name string
	if int(key) < len(configKeyToEnvName) {
		name = configKeyToEnvName[key]
	}

	item = &envConfigValue{
		key:   key,
		value: c.getenv(name),
	}
	c.items[key] = item

	return item
}

func (c *envConfig) Update(ctx context.Context) {
	c.lock.Lock()
	defer c.lock.Unlock()

	for key, cfg := range c.items {
		if err := cfg.Update(c.getenv); err != nil {
			slog.WarnContext(ctx, "Cannot update environment config", "key", configKeyToEnvName[key], common.ErrAttr(err))
		}
	}
}
