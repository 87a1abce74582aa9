package config

import (
	"testing"

	"github.com/0xpr03/nitter-status/pkg/common"
)

func TestRegisterEnvName(t *testing.T) {
	if err := RegisterEnvNameForConfigKey(common.COMMON_CONFIG_KEYS_COUNT, "count"); err != nil {
		t.Fatal(err)
	}
}
