package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/farazpawle/agent-flow-sub001/internal/store"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects grouping related tasks",
}

var (
	projectDescription string
	projectPath        string
	projectGitRemote   string
	projectTechStack   []string
	projectJSON        bool
)

var projectCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServicesForCurrentDir()
		if err != nil {
			return err
		}
		defer services.Close()

		p, err := services.Project.CreateProject(store.ProjectDraft{
			Name:         args[0],
			Description:  projectDescription,
			Path:         projectPath,
			GitRemoteURL: projectGitRemote,
			TechStack:    projectTechStack,
		})
		if err != nil {
			return MapError(fmt.Errorf("failed to create project: %w", err))
		}
		fmt.Printf("Project %s created: %s\n", p.ID, p.Name)
		return nil
	},
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects with task counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServicesForCurrentDir()
		if err != nil {
			return err
		}
		defer services.Close()

		projects := services.Project.ListProjects()
		if projectJSON {
			return printJSON(projects)
		}
		for _, p := range projects {
			fmt.Printf("%s  %s  (%d task(s))\n", p.ID, p.Name, p.TaskCount)
		}
		return nil
	},
}

var projectDeleteCmd = &cobra.Command{
	Use:   "delete <project-id>",
	Short: "Delete a project and all its tasks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServicesForCurrentDir()
		if err != nil {
			return err
		}
		defer services.Close()

		if err := services.Project.DeleteProject(args[0]); err != nil {
			return MapError(fmt.Errorf("failed to delete project: %w", err))
		}
		fmt.Printf("Project %s deleted.\n", args[0])
		return nil
	},
}

func init() {
	projectCreateCmd.Flags().StringVarP(&projectDescription, "description", "d", "", "Project description")
	projectCreateCmd.Flags().StringVar(&projectPath, "path", "", "Workspace path")
	projectCreateCmd.Flags().StringVar(&projectGitRemote, "git-remote", "", "Git remote URL")
	projectCreateCmd.Flags().StringSliceVar(&projectTechStack, "tech", nil, "Tech stack labels")
	projectListCmd.Flags().BoolVar(&projectJSON, "json", false, "Output JSON")

	projectCmd.AddCommand(projectCreateCmd, projectListCmd, projectDeleteCmd)
	RootCmd.AddCommand(projectCmd)
}
