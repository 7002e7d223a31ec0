package cli_test

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/reqtsv/internal/cli"
)

func Test_Shell_Creates_Draft_From_Component_Menu(t *testing.T) {
	t.Parallel()

	c := initCLI(t)

	stdout, stderr, code := c.RunWithInput("component\nn\nback\nexit\n", "shell")
	require.Equal(t, 0, code, "stderr: %s", stderr)

	cli.AssertContains(t, stdout, "  1) Requirement")
	cli.AssertContains(t, stdout, "component> ")
	cli.AssertContains(t, stdout, c.Path("component_draft-"))
	cli.AssertContains(t, stdout, "Bye!")

	pending := c.MustRun("pending", "component")
	assert.True(t, strings.HasPrefix(pending, "component_draft-"), pending)
}

func Test_Shell_Inserts_Requirement_And_Ends_On_EOF(t *testing.T) {
	t.Parallel()

	c := initCLI(t)
	insertComponent(t, c, "Sensor")

	path := c.MustRun("draft", "requirement")
	require.NoError(t, os.WriteFile(path, []byte(requirementDoc("Sample rate", "Every second")), 0o600))

	stdout, stderr, code := c.RunWithInput("1\ni\n"+path+"\n0\n", "shell")
	require.Equal(t, 0, code, "stderr: %s", stderr)

	cli.AssertContains(t, stdout, "Inserted requirement 0")
	cli.AssertContains(t, stdout, "Bye!")
	assert.Equal(t, "0\t0\tHigh\tAccepted\tSample rate", c.MustRun("ls", "requirement"))
}

func Test_Shell_Delete_Needs_Typed_Confirmation(t *testing.T) {
	t.Parallel()

	c := initCLI(t)
	insertComponent(t, c, "Sensor")

	stdout, _, code := c.RunWithInput("c\nd\n0\nno\nd\n0\nyes\nb\nq\n", "shell")
	require.Equal(t, 0, code)

	cli.AssertContains(t, stdout, "Not deleted.")
	cli.AssertContains(t, stdout, "Deleted component 0")
	assert.Equal(t, "0\tDeleted\tSensor", c.MustRun("ls", "component", "--all"))
}

func Test_Shell_Keeps_Running_After_Failed_Action(t *testing.T) {
	t.Parallel()

	c := initCLI(t)

	stdout, stderr, code := c.RunWithInput("c\ns\n42\nwat\nb\np\nh\nb\nq\n", "shell")
	require.Equal(t, 0, code)

	cli.AssertContains(t, stderr, "component 42: not found")
	cli.AssertContains(t, stdout, "Unknown choice: wat")
	cli.AssertContains(t, stdout, "title=Weather station")
	cli.AssertContains(t, stdout, "Bye!")
}

func Test_Shell_Deferred_Writes_Tables_On_Exit(t *testing.T) {
	t.Parallel()

	c := initCLI(t)

	path := c.MustRun("draft", "component")
	require.NoError(t, os.WriteFile(path, []byte(componentDoc("Sensor", "Reads values")), 0o600))

	sum := sha256.Sum256([]byte(componentHeader))
	headerHash := hex.EncodeToString(sum[:])

	stdout, stderr, code := c.RunWithInput("c\ni\n"+path+"\nl\nb\np\nh\nb\nq\n", "shell", "--deferred")
	require.Equal(t, 0, code, "stderr: %s", stderr)

	cli.AssertContains(t, stdout, "Inserted component 0")
	cli.AssertContains(t, stdout, "0\tAccepted\tSensor")
	cli.AssertContains(t, stdout, "component.tsv="+headerHash)

	assert.Equal(t, "0\tAccepted\tSensor", c.MustRun("ls", "component"))
	cli.AssertNotContains(t, c.MustRun("hash"), "component.tsv="+headerHash)
}
