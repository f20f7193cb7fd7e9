package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"codenav/internal/config"
	"codenav/internal/project"
)

var (
	initName     string
	initLanguage string
	initForce    bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize codenav for the current project",
	Long: `Initialize codenav for the project in the current directory.

Writes a starter PROJECT.toml and .codenav/config.json, and registers the
project in the workspace registry. Running it again is a no-op unless
--force is given.`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVar(&initName, "name", "", "Project name (default: directory name)")
	initCmd.Flags().StringVar(&initLanguage, "language", "", "Primary language (default: detected)")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing PROJECT.toml")
}

func runInit(cmd *cobra.Command, args []string) error {
	root, err := os.Getwd()
	if err != nil {
		return err
	}

	existing, err := project.LoadDeclaration(root)
	if err != nil && !initForce {
		return err
	}
	if existing != nil && !initForce {
		fmt.Printf("codenav is already initialized here (project %q).\n", existing.Name)
		fmt.Println("Use --force to overwrite PROJECT.toml.")
		return nil
	}

	decl := project.NewDeclaration(root, initName, initLanguage)
	if err := decl.Write(root); err != nil {
		return err
	}
	if decl.Language != "" {
		fmt.Printf("Created %s (project %q, language %s)\n",
			project.DeclarationFile, decl.Name, project.LanguageDisplayName(project.Language(decl.Language)))
	} else {
		fmt.Printf("Created %s (project %q)\n", project.DeclarationFile, decl.Name)
	}

	if err := config.DefaultConfig().Save(root); err != nil {
		return err
	}
	fmt.Println("Created .codenav/config.json")

	registerProject(decl, root)
	printNextSteps(decl)
	return nil
}

// registerProject adds the project to the workspace registry. Registration
// is best effort: a project that is already registered, or a home directory
// that cannot be resolved, does not fail init.
func registerProject(decl *project.Declaration, root string) {
	regPath, err := project.DefaultRegistryPath()
	if err != nil {
		return
	}
	reg, err := project.LoadRegistry(regPath)
	if err != nil {
		fmt.Printf("Warning: could not read workspace registry: %v\n", err)
		return
	}
	if _, err := reg.Add(decl.Name, root, decl.Language); err != nil {
		fmt.Printf("Registry: %v\n", err)
		return
	}
	if err := reg.Save(); err != nil {
		fmt.Printf("Warning: could not save workspace registry: %v\n", err)
		return
	}
	fmt.Printf("Registered in %s\n", regPath)
}

func printNextSteps(decl *project.Declaration) {
	fmt.Println("\nNext steps:")
	if info := project.GetIndexerInfo(project.Language(decl.Language)); info != nil {
		fmt.Printf("  1. Install the indexer:  %s\n", info.InstallCommand)
		fmt.Printf("  2. Generate the index:   %s\n", info.Command)
		fmt.Println("  3. Start the server:     codenav serve")
		return
	}
	fmt.Println("  1. Generate a SCIP index for this project (index.scip)")
	fmt.Println("  2. Start the server:     codenav serve")
}
