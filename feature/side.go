package feature

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rushteam/recmin/core"
	"github.com/rushteam/recmin/dataset"
	"github.com/rushteam/recmin/logging"
)

// DefaultDropColumns 合并前默认删除的列
var DefaultDropColumns = []string{"category_styles", "styles", "duration"}

// SideInfo 描述一个要导出给外部评估框架的辅助属性。
type SideInfo struct {
	Type      string   `koanf:"type" yaml:"type" validate:"oneof=user item"` // user / item，作为输出文件前缀
	File      string   `koanf:"file" yaml:"file" validate:"required"`        // 属性文件，相对数据集目录
	Delimiter string   `koanf:"delimiter" yaml:"delimiter"`                  // 默认 tab，与 merge_file 共用
	MergeFile string   `koanf:"merge_file" yaml:"merge_file"`                // 可选：左连接的第二个属性文件
	MergeKey  string   `koanf:"merge_key" yaml:"merge_key"`                  // 左连接 key
	Drop      []string `koanf:"drop" yaml:"drop"`                            // 合并前删除的列，默认 DefaultDropColumns
	Entity    string   `koanf:"entity" yaml:"entity" validate:"required"`    // 实体列（用户/物品 id）
	Attribute string   `koanf:"attribute" yaml:"attribute" validate:"required"`
	Groups    int      `koanf:"groups" yaml:"groups" validate:"gte=0"` // >0 时按等宽分组，否则按类别重映射
}

// Result 是一次辅助属性处理的输出文件。
type Result struct {
	MergedPath    string
	MappingPath   string
	AttributePath string
	Categories    int
}

// Process 读取（并可选合并）属性文件，重映射属性列，写出：
//   - <type>_<attr>_mapping.tsv：表头 Original\tMapped
//   - <type>_<attr>.tsv：无表头 (entity, mapped)
func Process(spec SideInfo, srcDir, outDir string) (*Result, error) {
	res := &Result{}
	delim, err := dataset.ParseDelimiter(spec.Delimiter)
	if err != nil {
		return nil, err
	}
	table, err := LoadAttributeTable(filepath.Join(srcDir, spec.File), delim)
	if err != nil {
		return nil, err
	}
	if spec.MergeFile != "" {
		if spec.MergeKey == "" {
			return nil, core.Errorf(core.ModuleFeature, core.ErrorCodeInvalidConfig, "merge_file %q requires merge_key", spec.MergeFile)
		}
		right, err := LoadAttributeTable(filepath.Join(srcDir, spec.MergeFile), delim)
		if err != nil {
			return nil, err
		}
		drop := spec.Drop
		if drop == nil {
			drop = DefaultDropColumns
		}
		table, err = Merge(table.Drop(drop...), right.Drop(drop...), spec.MergeKey)
		if err != nil {
			return nil, err
		}
		res.MergedPath = filepath.Join(outDir, spec.Type+"_full_info.tsv")
		if err := dataset.WriteRecords(res.MergedPath, table.Header, table.Records); err != nil {
			return nil, err
		}
	}

	reduced, err := table.Project(spec.Entity, spec.Attribute)
	if err != nil {
		return nil, err
	}
	var mapping [][]string
	mapped := make([][]string, len(reduced.Records))
	if spec.Groups > 0 {
		values := make([]float64, len(reduced.Records))
		for i, rec := range reduced.Records {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
			if err != nil {
				return nil, core.WrapDomainError(core.ModuleFeature, core.ErrorCodeInvalidInput,
					"attribute "+spec.Attribute+" row "+strconv.Itoa(i+1), err)
			}
			values[i] = v
		}
		binner, err := FitEqualWidthBinner(values, spec.Groups)
		if err != nil {
			return nil, err
		}
		for i, rec := range reduced.Records {
			mapped[i] = []string{rec[0], strconv.Itoa(binner.Bin(values[i]))}
		}
		mapping = binner.Mapping()
		res.Categories = spec.Groups
	} else {
		col := make([]string, len(reduced.Records))
		for i, rec := range reduced.Records {
			col[i] = rec[1]
		}
		enc := FitLabelEncoder(col)
		for i, rec := range reduced.Records {
			mapped[i] = []string{rec[0], strconv.Itoa(enc.Encode(rec[1]))}
		}
		mapping = enc.Mapping()
		res.Categories = enc.Len()
	}

	base := spec.Type + "_" + spec.Attribute
	res.MappingPath = filepath.Join(outDir, base+"_mapping.tsv")
	res.AttributePath = filepath.Join(outDir, base+".tsv")
	if err := dataset.WriteRecords(res.MappingPath, []string{"Original", "Mapped"}, mapping); err != nil {
		return nil, err
	}
	if err := dataset.WriteRecords(res.AttributePath, nil, mapped); err != nil {
		return nil, err
	}
	logging.Info().
		Str("attribute", spec.Attribute).
		Str("type", spec.Type).
		Int("categories", res.Categories).
		Str("mapping", res.MappingPath).
		Msg("side information remapped")
	return res, nil
}
