package scan

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/John-Robertt/IFDB/internal/domain"
)

// ScanVideos 扫描 root 下的视频文件，并应用目录排除规则。
//
// 规则：
// - 以 '.' 开头的目录永久排除（隐藏目录、临时目录）
// - excludeDirs 均视为相对 root 的路径（若是绝对路径，则按绝对路径处理）
//
// 扫描阶段只做 stat（DirEntry.Info），不读文件内容。
func ScanVideos(root string, excludeDirs []string) ([]domain.MediaFile, error) {
	root = filepath.Clean(root)
	excluded := buildExcluded(root, excludeDirs)

	files := make([]domain.MediaFile, 0, 128)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		if d.IsDir() {
			if path != root && (strings.HasPrefix(d.Name(), ".") || isExcluded(path, excluded)) {
				return filepath.SkipDir
			}
			return nil
		}
		if isExcluded(path, excluded) {
			return nil
		}

		name := d.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if !isVideoExt(ext) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		files = append(files, domain.MediaFile{
			AbsPath: path,
			RelPath: rel,
			Base:    strings.TrimSuffix(name, filepath.Ext(name)),
			Ext:     ext,
			Size:    info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	// 强制稳定输出，避免不同平台/文件系统行为差异带来的不确定性。
	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })
	return files, nil
}

func isVideoExt(ext string) bool {
	switch ext {
	case ".mp4", ".mkv", ".avi", ".m4v", ".mov":
		return true
	default:
		return false
	}
}

func buildExcluded(root string, excludeDirs []string) []string {
	excluded := make([]string, 0, len(excludeDirs))
	for _, x := range excludeDirs {
		x = strings.TrimSpace(x)
		if x == "" {
			continue
		}
		if filepath.IsAbs(x) {
			excluded = append(excluded, filepath.Clean(x))
			continue
		}
		excluded = append(excluded, filepath.Clean(filepath.Join(root, x)))
	}
	sort.Strings(excluded)
	return excluded
}

func isExcluded(path string, excluded []string) bool {
	path = filepath.Clean(path)
	for _, base := range excluded {
		if isUnder(path, base) {
			return true
		}
	}
	return false
}

func isUnder(path, base string) bool {
	if path == base {
		return true
	}
	return strings.HasPrefix(path, base+string(filepath.Separator))
}
