package normalize

import (
	"strings"
	"testing"
)

func TestDocument_PluralKeys(t *testing.T) {
	input := `alias: Test
triggers:
  - platform: state
    entity_id: binary_sensor.motion
actions:
  - service: light.turn_on
conditions:
  - condition: state
    entity_id: sun.sun
    state: below_horizon
`
	fixed, fixes := Document(input)

	wantFixes := []string{
		"renamed deprecated key 'triggers' to 'trigger'",
		"renamed deprecated key 'actions' to 'action'",
		"renamed deprecated key 'conditions' to 'condition'",
	}
	if len(fixes) != len(wantFixes) {
		t.Fatalf("Document() fixes = %v, want %v", fixes, wantFixes)
	}
	for i, want := range wantFixes {
		if fixes[i] != want {
			t.Errorf("fixes[%d] = %q, want %q", i, fixes[i], want)
		}
	}

	for _, plural := range []string{"triggers:", "actions:", "conditions:"} {
		if strings.Contains(fixed, plural) {
			t.Errorf("Document() output still contains %q:\n%s", plural, fixed)
		}
	}
	for _, singular := range []string{"trigger:", "action:", "condition:"} {
		if !strings.Contains(fixed, singular) {
			t.Errorf("Document() output missing %q:\n%s", singular, fixed)
		}
	}
}

func TestDocument_TriggerKeyRename(t *testing.T) {
	input := `alias: Test
trigger:
  - trigger: state
    entity_id: binary_sensor.motion
action:
  - service: light.turn_on
`
	fixed, fixes := Document(input)

	if len(fixes) != 1 || fixes[0] != "trigger[0]: renamed deprecated key 'trigger' to 'platform'" {
		t.Fatalf("Document() fixes = %v", fixes)
	}
	if !strings.Contains(fixed, "platform: state") {
		t.Errorf("Document() output missing platform key:\n%s", fixed)
	}
}

func TestDocument_ActionKeyRename(t *testing.T) {
	input := `alias: Test
trigger:
  - platform: state
action:
  - action: light.turn_on
`
	fixed, fixes := Document(input)

	if len(fixes) != 1 || fixes[0] != "action[0]: renamed deprecated key 'action' to 'service'" {
		t.Fatalf("Document() fixes = %v", fixes)
	}
	if !strings.Contains(fixed, "service: light.turn_on") {
		t.Errorf("Document() output missing service key:\n%s", fixed)
	}
}

func TestDocument_ContinueOnError(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		wantFix  string
		wantLine string
	}{
		{
			name:     "true becomes continue",
			value:    "true",
			wantFix:  "action[0]: replaced deprecated 'continue_on_error: true' with 'error: continue'",
			wantLine: "error: continue",
		},
		{
			name:     "false becomes stop",
			value:    "false",
			wantFix:  "action[0]: replaced deprecated 'continue_on_error: false' with 'error: stop'",
			wantLine: "error: stop",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := "alias: Test\ntrigger:\n  - platform: state\naction:\n  - service: light.turn_on\n    continue_on_error: " + tt.value + "\n"
			fixed, fixes := Document(input)

			if len(fixes) != 1 || fixes[0] != tt.wantFix {
				t.Fatalf("Document() fixes = %v, want [%q]", fixes, tt.wantFix)
			}
			if !strings.Contains(fixed, tt.wantLine) {
				t.Errorf("Document() output missing %q:\n%s", tt.wantLine, fixed)
			}
			if strings.Contains(fixed, "continue_on_error") {
				t.Errorf("Document() output still has deprecated key:\n%s", fixed)
			}
		})
	}
}

func TestDocument_NullContinueOnErrorDropped(t *testing.T) {
	input := `alias: Test
trigger:
  - platform: state
action:
  - service: light.turn_on
    continue_on_error: null
`
	fixed, fixes := Document(input)

	if len(fixes) != 1 || fixes[0] != "action[0]: removed null 'continue_on_error'" {
		t.Fatalf("Document() fixes = %v", fixes)
	}
	if strings.Contains(fixed, "continue_on_error") {
		t.Errorf("Document() output still has dropped key:\n%s", fixed)
	}
	if strings.Contains(fixed, "error:") {
		t.Errorf("Document() invented an error policy for a null flag:\n%s", fixed)
	}
}

func TestDocument_NestedActionLists(t *testing.T) {
	input := `alias: Test
trigger:
  - platform: state
action:
  - choose:
      - conditions:
          - condition: state
            entity_id: sun.sun
            state: below_horizon
        sequence:
          - action: light.turn_on
            continue_on_error: true
    default:
      - action: light.turn_off
`
	_, fixes := Document(input)

	want := []string{
		"action[0].choose[0].sequence[0]: renamed deprecated key 'action' to 'service'",
		"action[0].choose[0].sequence[0]: replaced deprecated 'continue_on_error: true' with 'error: continue'",
		"action[0].default[0]: renamed deprecated key 'action' to 'service'",
	}
	if len(fixes) != len(want) {
		t.Fatalf("Document() fixes = %v, want %v", fixes, want)
	}
	for i := range want {
		if fixes[i] != want[i] {
			t.Errorf("fixes[%d] = %q, want %q", i, fixes[i], want[i])
		}
	}
}

func TestDocument_CleanInputUnchanged(t *testing.T) {
	input := "alias: Test\ntrigger:\n  - platform: state\naction:\n  - service: light.turn_on\n"
	fixed, fixes := Document(input)

	if len(fixes) != 0 {
		t.Errorf("Document() fixes = %v, want none", fixes)
	}
	if fixed != input {
		t.Errorf("Document() rewrote a clean document:\n%s", fixed)
	}
}

func TestDocument_UnparseableInputReturnedVerbatim(t *testing.T) {
	input := "alias: [unclosed"
	fixed, fixes := Document(input)

	if fixed != input {
		t.Errorf("Document() = %q, want input unchanged", fixed)
	}
	if fixes != nil {
		t.Errorf("Document() fixes = %v, want nil", fixes)
	}
}

func TestDocument_NonMappingRootUntouched(t *testing.T) {
	input := "- just\n- a\n- list\n"
	fixed, fixes := Document(input)

	if fixed != input || fixes != nil {
		t.Errorf("Document() = (%q, %v), want input unchanged with nil fixes", fixed, fixes)
	}
}

func TestDocument_Idempotent(t *testing.T) {
	input := `alias: Test
triggers:
  - trigger: state
    entity_id: binary_sensor.motion
actions:
  - action: light.turn_on
    continue_on_error: false
`
	once, fixes := Document(input)
	if len(fixes) == 0 {
		t.Fatal("Document() applied no fixes to a deprecated document")
	}

	twice, again := Document(once)
	if len(again) != 0 {
		t.Errorf("second Document() pass applied fixes: %v", again)
	}
	if twice != once {
		t.Errorf("second Document() pass changed the text:\n%s\nvs\n%s", once, twice)
	}
}

func TestDocument_ExistingCanonicalKeyNotClobbered(t *testing.T) {
	input := `alias: Test
trigger:
  - trigger: state
    platform: time
action:
  - service: light.turn_on
`
	_, fixes := Document(input)
	if len(fixes) != 0 {
		t.Errorf("Document() fixes = %v, want none when canonical key already present", fixes)
	}
}
