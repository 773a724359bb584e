package migrate

import (
	"github.com/spf13/cobra"

	"github.com/openkcm/admin-console/internal/business"
	"github.com/openkcm/admin-console/internal/cmdutils"
)

func Cmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"migrate",
		"Admin Console migrations",
		"Admin Console migrations create the session table of the sql auth provider",
		buildInfo,
		cmdutils.RunAsJob,
		business.MigrateMain,
	)
}
