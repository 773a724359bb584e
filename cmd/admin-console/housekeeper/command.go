package housekeeper

import (
	"github.com/spf13/cobra"

	"github.com/openkcm/admin-console/internal/business"
	"github.com/openkcm/admin-console/internal/cmdutils"
)

func Cmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"housekeeper",
		"Admin Console Housekeeping job",
		"Admin Console Housekeeping job purges expired sessions of the sql auth provider",
		buildInfo,
		cmdutils.RunAsService,
		business.HousekeeperMain,
	)
}
