package apiserver

import (
	"github.com/spf13/cobra"

	"github.com/openkcm/admin-console/internal/business"
	"github.com/openkcm/admin-console/internal/cmdutils"
)

func Cmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"api-server",
		"Admin Console API server",
		"Admin Console API server hosts the sign-out endpoint and the session gated admin pages",
		buildInfo,
		cmdutils.RunAsService,
		business.Main,
	)
}
