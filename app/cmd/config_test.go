package cmd

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigHelpers(t *testing.T) {
	data := map[string]interface{}{
		"agent": map[string]interface{}{
			"default_type": "composite",
		},
	}
	value, ok := getConfigValue(data, "agent.default_type")
	require.True(t, ok)
	require.Equal(t, "composite", value)

	require.NoError(t, setConfigValue(data, "agent.default_type", "react"))
	value, ok = getConfigValue(data, "agent.default_type")
	require.True(t, ok)
	require.Equal(t, "react", value)

	require.NoError(t, setConfigValue(data, "tools.cache.ttl", "5m"))
	value, ok = getConfigValue(data, "tools.cache.ttl")
	require.True(t, ok)
	require.Equal(t, "5m", value)

	require.Error(t, setConfigValue(data, "agent..type", 1))
	_, ok = getConfigValue(data, "agent.default_type.deeper")
	require.False(t, ok)
}

func TestParseValue(t *testing.T) {
	require.Equal(t, true, parseValue("true"))
	require.Equal(t, int64(8), parseValue("8"))
	require.Equal(t, 0.5, parseValue("0.5"))
	require.Equal(t, "llama3", parseValue("llama3"))
	require.Equal(t, []interface{}{"calculator", "current_time"}, parseValue("calculator, current_time"))
	require.Equal(t, "[calculator, current_time]", prettyValue(parseValue("calculator,current_time")))
}

func TestUnsetConfigValuePrunesEmptyMaps(t *testing.T) {
	data := map[string]interface{}{
		"tools": map[string]interface{}{
			"cache": map[string]interface{}{"ttl": "5m"},
		},
		"agent": map[string]interface{}{"debug": true},
	}
	require.True(t, unsetConfigValue(data, "tools.cache.ttl"))
	_, ok := data["tools"]
	require.False(t, ok)
	require.False(t, unsetConfigValue(data, "tools.cache.ttl"))
	require.False(t, unsetConfigValue(data, "agent.debug.deeper"))
	require.Contains(t, data, "agent")
}

func TestValidateConfigMap(t *testing.T) {
	require.NoError(t, validateConfigMap(map[string]interface{}{}))
	require.NoError(t, validateConfigMap(map[string]interface{}{
		"agent": map[string]interface{}{"max_iterations": int64(4)},
	}))
	require.Error(t, validateConfigMap(map[string]interface{}{
		"agent": map[string]interface{}{"max_iteration": int64(4)},
	}))
	require.Error(t, validateConfigMap(map[string]interface{}{
		"agent": map[string]interface{}{"max_iterations": "many"},
	}))
}
