package dataset

import (
	"path/filepath"
	"strconv"
)

// 预处理阶段产出的文件名（位于 <data_dir>/<ds>/<ds>-user_based/）
const (
	FileDataSubject   = "ds.tsv"
	FileDataMinimizer = "dm.tsv"
	FileCandidate     = "dm_candidate.tsv"
	FileVal           = "dm_val.tsv"
	FileValFull       = "dm_val_full.tsv"
	FileTest          = "dm_test.tsv"
	FileTestFull      = "dm_test_full.tsv"
)

// Layout 描述输入与输出的目录约定。
//
//	<data_dir>/<ds>/<raw file>
//	<data_dir>/<ds>/<ds>-user_based/{ds,dm,dm_candidate,dm_val,dm_test}.tsv
//	<output_dir>/<ds>/<strategy>/<n>.tsv        无表头 user,item,rating
//	<output_dir>/<ds>/<strategy>/<n>_full.tsv   带表头全部列
//	<output_dir>/<ds>/{val,test}.tsv
type Layout struct {
	DataDir   string
	OutputDir string
}

// UserBasedDir 返回预处理文件目录。
func (l Layout) UserBasedDir(ds string) string {
	return filepath.Join(l.DataDir, ds, ds+"-user_based")
}

// Prepared 返回预处理文件路径。
func (l Layout) Prepared(ds, file string) string {
	return filepath.Join(l.UserBasedDir(ds), file)
}

// DatasetDir 返回某数据集的输出根目录。
func (l Layout) DatasetDir(ds string) string {
	return filepath.Join(l.OutputDir, ds)
}

// Variant 返回某策略某预算的输出文件路径。
func (l Layout) Variant(ds, strategy string, n int) string {
	return filepath.Join(l.OutputDir, ds, strategy, strconv.Itoa(n)+".tsv")
}

// VariantFull 返回某策略某预算的 full 审计文件路径。
func (l Layout) VariantFull(ds, strategy string, n int) string {
	return filepath.Join(l.OutputDir, ds, strategy, strconv.Itoa(n)+"_full.tsv")
}

// Shared 返回数据集根目录下共享的 val.tsv / test.tsv。
func (l Layout) Shared(ds, name string) string {
	return filepath.Join(l.OutputDir, ds, name+".tsv")
}

// SourceDir 返回原始文件与辅助信息所在目录 <data_dir>/<ds>。
func (l Layout) SourceDir(ds string) string {
	return filepath.Join(l.DataDir, ds)
}
