package sysinstall

import "path/filepath"

const (
	// 标准目录
	DefaultConfigDir = "/etc/adfilter"
	DefaultDataDir   = "/var/lib/adfilter"
	DefaultBinaryDir = "/usr/local/bin"
	SystemdUnitDir   = "/etc/systemd/system"

	// 文件与服务名
	BinaryName  = "adfilter"
	ServiceName = "adfilter"
)

// DefaultConfigPath 获取默认配置文件完整路径
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir, "config.yaml")
}

// DefaultBinaryPath 获取默认二进制文件完整路径
func DefaultBinaryPath() string {
	return filepath.Join(DefaultBinaryDir, BinaryName)
}

// ServiceFilePath 获取 systemd 单元文件路径
func ServiceFilePath() string {
	return filepath.Join(SystemdUnitDir, ServiceName+".service")
}
