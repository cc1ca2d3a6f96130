package hostbridge

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// Scripts encode success as the literal "true" and failures with an
// "Error: " / "error: " prefix; the bridge itself is agnostic to the
// payload.

// ImportFile asks the host to import the media file into the active project
// and open it in the source monitor.
func (b *Bridge) ImportFile(ctx context.Context, mediaPath string) error {
	result, err := b.Execute(ctx, importScript(mediaPath, b.ResultPath()))
	if err != nil {
		return err
	}
	if result != "true" {
		return fmt.Errorf("host import failed: %s", result)
	}
	return nil
}

// ProjectPath asks the host for the active project file path.
func (b *Bridge) ProjectPath(ctx context.Context) (string, error) {
	result, err := b.Execute(ctx, projectPathScript(b.ResultPath()))
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(strings.ToLower(result), "error") {
		return "", fmt.Errorf("host project query failed: %s", result)
	}
	return result, nil
}

func importScript(mediaPath, resultPath string) string {
	return fmt.Sprintf(`var result = "false";
try {
    if (app.project) {
        var imported = app.project.importFiles([%[1]s], false, app.project.rootItem, false);
        if (imported && imported.length > 0) {
            imported[0].openInSource();
            result = "true";
        }
    }
} catch (e) {
    result = "Error: " + e.toString();
}
var resultFile = new File(%[2]s);
resultFile.open('w');
resultFile.write(result);
resultFile.close();
`, scriptString(mediaPath), scriptString(resultPath))
}

func projectPathScript(resultPath string) string {
	return fmt.Sprintf(`var result = "error: no active project";
try {
    if (app.project && app.project.path) {
        result = app.project.path;
    }
} catch (e) {
    result = "Error: " + e.toString();
}
var resultFile = new File(%s);
resultFile.open('w');
resultFile.write(result);
resultFile.close();
`, scriptString(resultPath))
}

// scriptString renders a filesystem path as a quoted ExtendScript literal.
// Forward slashes keep the host's File object happy on every platform.
func scriptString(path string) string {
	escaped := strings.ReplaceAll(filepath.ToSlash(path), `"`, `\"`)
	return `"` + escaped + `"`
}
