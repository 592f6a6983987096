package reposetup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/reposetup/pkg/paths"
	"github.com/arthur-debert/reposetup/pkg/pipeline"
	"github.com/arthur-debert/reposetup/pkg/types"
)

// ErrSetupFailed signals that the pipeline reported a failure which has
// already been rendered; main only needs the exit status.
var ErrSetupFailed = errors.New("setup failed")

func newSetupCmd() *cobra.Command {
	var (
		kind             string
		dest             string
		token            string
		sshKey           string
		credentialHelper string
		install          bool
		venv             bool
		postSetup        bool
		quickChecks      bool
		addCI            bool
		buildContainer   bool
		runContainer     bool
	)

	setupCmd := &cobra.Command{
		Use:   "setup <source>",
		Short: MsgSetupShort,
		Long:  MsgSetupLong,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			location := args[0]

			sourceKind, err := resolveKind(kind, location)
			if err != nil {
				return err
			}
			if sourceKind != types.SourceRemoteRepo {
				if location, err = paths.ExpandHome(location); err != nil {
					return err
				}
			}

			destParent := dest
			if destParent == "" {
				destParent = defaultDestParent()
			} else if destParent, err = paths.ExpandHome(destParent); err != nil {
				return err
			}

			if sshKey != "" {
				if sshKey, err = paths.ExpandHome(sshKey); err != nil {
					return err
				}
			}

			session := pipeline.NewSession(newConsoleSink(cmd.OutOrStdout()),
				newConsoleNotifier(cmd.OutOrStdout()))

			outcome := session.Run(context.Background(), pipeline.Request{
				Source: types.SourceDescriptor{
					Kind:     sourceKind,
					Location: location,
					Credentials: types.Credentials{
						SSHKeyPath:       sshKey,
						OAuthToken:       token,
						CredentialHelper: credentialHelper,
					},
				},
				DestParent: destParent,
				Options: types.Options{
					AutoInstall:    install,
					IsolatedEnv:    venv,
					RunPostSetup:   postSetup,
					RunQuickChecks: quickChecks,
					AddCITemplate:  addCI,
					BuildContainer: buildContainer,
					RunContainer:   runContainer,
				},
			})

			if !outcome.Success {
				return ErrSetupFailed
			}
			return nil
		},
	}

	setupCmd.Flags().StringVar(&kind, "kind", "", MsgFlagKind)
	setupCmd.Flags().StringVar(&dest, "dest", "", MsgFlagDest)
	setupCmd.Flags().StringVar(&token, "token", "", MsgFlagToken)
	setupCmd.Flags().StringVar(&sshKey, "ssh-key", "", MsgFlagSSHKey)
	setupCmd.Flags().StringVar(&credentialHelper, "credential-helper", "", MsgFlagCredentialHelper)
	setupCmd.Flags().BoolVar(&install, "install", true, MsgFlagInstall)
	setupCmd.Flags().BoolVar(&venv, "venv", false, MsgFlagVenv)
	setupCmd.Flags().BoolVar(&postSetup, "post-setup", false, MsgFlagPostSetup)
	setupCmd.Flags().BoolVar(&quickChecks, "quick-checks", false, MsgFlagQuickChecks)
	setupCmd.Flags().BoolVar(&addCI, "ci", false, MsgFlagCI)
	setupCmd.Flags().BoolVar(&buildContainer, "build-container", false, MsgFlagBuildContainer)
	setupCmd.Flags().BoolVar(&runContainer, "run-container", false, MsgFlagRunContainer)

	return setupCmd
}

// resolveKind honors an explicit --kind and otherwise detects the source
// kind from the location's shape.
func resolveKind(kind, location string) (types.SourceKind, error) {
	switch kind {
	case "folder":
		return types.SourceFolder, nil
	case "archive":
		return types.SourceArchive, nil
	case "url":
		return types.SourceRemoteRepo, nil
	case "":
		return detectKind(location), nil
	}
	return "", fmt.Errorf("unknown source kind %q (expected folder, archive or url)", kind)
}

func detectKind(location string) types.SourceKind {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") ||
		(strings.Contains(location, "@") && strings.Contains(location, ":")) {
		return types.SourceRemoteRepo
	}
	if strings.HasSuffix(location, ".zip") {
		return types.SourceArchive
	}
	return types.SourceFolder
}

// defaultDestParent mirrors the classic default of a repo_setups folder
// in the user's home directory.
func defaultDestParent() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "repo_setups"
	}
	return filepath.Join(home, "repo_setups")
}
