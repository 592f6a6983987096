package provision

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/beevik/etree"
	toml "github.com/pelletier/go-toml/v2"
)

// mavenCoordinatesNote reads groupId and artifactId from pom.xml for log
// context. Returns "" when the file cannot be parsed; provisioning never
// depends on manifest contents.
func mavenCoordinatesNote(rootPath string) string {
	doc := etree.NewDocument()
	if err := doc.ReadFromFile(filepath.Join(rootPath, "pom.xml")); err != nil {
		return ""
	}

	project := doc.FindElement("/project")
	if project == nil {
		return ""
	}

	groupID := elementText(project, "groupId")
	if groupID == "" {
		// Inherited from the parent project.
		if parent := project.FindElement("parent"); parent != nil {
			groupID = elementText(parent, "groupId")
		}
	}
	artifactID := elementText(project, "artifactId")
	if artifactID == "" {
		return ""
	}

	if groupID == "" {
		return fmt.Sprintf(" (%s)", artifactID)
	}
	return fmt.Sprintf(" (%s:%s)", groupID, artifactID)
}

func elementText(parent *etree.Element, name string) string {
	if el := parent.FindElement(name); el != nil {
		return strings.TrimSpace(el.Text())
	}
	return ""
}

// cargoPackageNote reads the [package] name from Cargo.toml for log
// context.
func cargoPackageNote(rootPath string) string {
	data, err := os.ReadFile(filepath.Join(rootPath, "Cargo.toml"))
	if err != nil {
		return ""
	}

	var manifest struct {
		Package struct {
			Name string `toml:"name"`
		} `toml:"package"`
	}
	if err := toml.Unmarshal(data, &manifest); err != nil || manifest.Package.Name == "" {
		return ""
	}
	return fmt.Sprintf(" (package %s)", manifest.Package.Name)
}
