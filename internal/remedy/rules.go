package remedy

import (
	"github.com/packagewjx/failure-insight/pkg/core"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Rule is one rule-table entry: a human description of the failure type plus
// an ordered list of canned remedies. The table is data, not code; operators
// edit the YAML file and restart nothing but the engine process.
type Rule struct {
	Description string               `json:"description"`
	Solutions   []*core.RuleSolution `json:"solutions"`
}

// RuleTable maps a failure type to its rule entry.
type RuleTable map[string]*Rule

// LoadRuleTable reads a rule table from a YAML file. The file layout mirrors
// configs/rules.yaml.
func LoadRuleTable(path string) (RuleTable, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrap(err, "cannot read remediation rule file")
	}

	var parsed struct {
		Rules RuleTable
	}
	if err := v.Unmarshal(&parsed); err != nil {
		return nil, errors.Wrap(err, "malformed remediation rule file")
	}
	if len(parsed.Rules) == 0 {
		return nil, errors.Errorf("rule file %s defines no rules", path)
	}
	return parsed.Rules, nil
}

// DefaultRuleTable returns the built-in rules used when no rule file is
// configured.
func DefaultRuleTable() RuleTable {
	return RuleTable{
		"OOMKilled": {
			Description: "Out of memory: pod exceeded its memory limit",
			Solutions: []*core.RuleSolution{
				{
					Action:      "increase_memory",
					Description: "Increase memory request/limit by 2x",
					Params:      map[string]interface{}{"multiplier": 2.0},
				},
				{
					Action:      "optimize_code",
					Description: "Optimize application memory usage (manual)",
				},
			},
		},
		"ImagePullBackOff": {
			Description: "Cannot pull container image",
			Solutions: []*core.RuleSolution{
				{
					Action:      "verify_image",
					Description: "Verify image name, tag, and registry access",
				},
				{
					Action:      "check_credentials",
					Description: "Check image pull secrets and registry credentials",
				},
			},
		},
		"CrashLoopBackOff": {
			Description: "Container crashes immediately after starting",
			Solutions: []*core.RuleSolution{
				{
					Action:      "check_command",
					Description: "Verify container command and entrypoint",
				},
				{
					Action:      "check_dependencies",
					Description: "Check for missing dependencies or environment variables",
				},
			},
		},
		"Pending": {
			Description: "Job stuck in Pending state: insufficient resources",
			Solutions: []*core.RuleSolution{
				{
					Action:      "reduce_resources",
					Description: "Reduce GPU/CPU/memory requests",
					Params:      map[string]interface{}{"gpuReduction": 0.5},
				},
				{
					Action:      "wait_for_resources",
					Description: "Wait for cluster resources to become available",
					Params:      map[string]interface{}{"estimatedWaitMinutes": 30},
				},
			},
		},
		"Error": {
			Description: "Generic error: requires investigation",
			Solutions: []*core.RuleSolution{
				{
					Action:      "check_logs",
					Description: "Review pod logs for specific error messages",
				},
				{
					Action:      "resubmit",
					Description: "Resubmit the job (may be a transient error)",
				},
			},
		},
	}
}
