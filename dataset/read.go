// Package dataset 负责 TSV 文件的读写与输出目录布局。
package dataset

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/rushteam/recmin/core"
	"github.com/rushteam/recmin/schema"
)

// Tab 是默认分隔符。
const Tab = '\t'

// ParseDelimiter 解析配置中的分隔符："" / "tab" / "\t" 为制表符，"comma" 为逗号，其余必须是单个字符。
func ParseDelimiter(s string) (rune, error) {
	switch s {
	case "", "tab", "\t", "\\t":
		return Tab, nil
	case "comma":
		return ',', nil
	case "semicolon":
		return ';', nil
	}
	r := []rune(s)
	if len(r) != 1 || r[0] == '"' || r[0] == '\r' || r[0] == '\n' {
		return 0, core.Errorf(core.ModuleDataset, core.ErrorCodeInvalidConfig,
			"invalid delimiter %q: expected a single character, tab or comma", s)
	}
	return r[0], nil
}

// ReadDelimited 读取以 delim 分隔的文件，所有值按原始字符串保留。
// 未加引号字段中的 " 按普通字符处理。hasHeader 为 false 时表头为 X0, X1, ...
func ReadDelimited(path string, delim rune, hasHeader bool) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, core.WrapDomainError(core.ModuleDataset, core.ErrorCodeNotFound,
				fmt.Sprintf("file not found: %s", path), err)
		}
		return nil, nil, err
	}
	defer f.Close()

	df := dataframe.ReadCSV(bufio.NewReader(f),
		dataframe.WithDelimiter(delim),
		dataframe.WithLazyQuotes(true),
		dataframe.HasHeader(hasHeader),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(nil),
	)
	if df.Err != nil {
		return nil, nil, core.WrapDomainError(core.ModuleDataset, core.ErrorCodeInvalidInput,
			fmt.Sprintf("read %s", path), df.Err)
	}
	records := df.Records()
	if len(records) == 0 {
		return df.Names(), nil, nil
	}
	return records[0], records[1:], nil
}

// LoadInteractions 读取原始交互文件（分隔符 delim）并解析列，得到 Pipeline 的输入表。
// 文件不存在时返回 NOT_FOUND，错误信息给出期望的路径与目录约定。
func LoadInteractions(dataDir, datasetName, fileName string, delim rune, keywords schema.Keywords) (*core.Table, error) {
	path := filepath.Join(dataDir, datasetName, fileName)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, core.Errorf(core.ModuleDataset, core.ErrorCodeNotFound,
				"the dataset file '%s' was not found at the path: %s; files must be positioned in %s",
				fileName, path, filepath.Join(dataDir, "<dataset_name>"))
		}
		return nil, err
	}
	header, records, err := ReadDelimited(path, delim, true)
	if err != nil {
		return nil, err
	}
	t, err := schema.Load(header, records, keywords)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return t, nil
}
