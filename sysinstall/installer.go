package sysinstall

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"runtime"
	"strings"

	"adfilter/config"
)

// InstallerConfig 安装配置
type InstallerConfig struct {
	ConfigPath string // 配置文件路径
	WorkDir    string // 工作目录（规则缓存与 settings.db 所在位置）
	RunUser    string // 运行用户
	BinaryPath string // 二进制安装路径
	UnitPath   string // systemd 单元文件路径
	DryRun     bool   // 是否为干运行模式
	Verbose    bool   // 是否显示详细信息
}

// SystemInstaller 将 adfilter 安装为 systemd 服务
type SystemInstaller struct {
	config InstallerConfig
	out    io.Writer
	// run 执行外部命令并返回合并输出，测试中可替换
	run func(name string, args ...string) (string, error)
}

// NewSystemInstaller 创建新的系统安装器
func NewSystemInstaller(cfg InstallerConfig) *SystemInstaller {
	if cfg.ConfigPath == "" {
		cfg.ConfigPath = DefaultConfigPath()
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = DefaultDataDir
	}
	if cfg.RunUser == "" {
		cfg.RunUser = "root"
	}
	if cfg.BinaryPath == "" {
		cfg.BinaryPath = DefaultBinaryPath()
	}
	if cfg.UnitPath == "" {
		cfg.UnitPath = ServiceFilePath()
	}
	return &SystemInstaller{
		config: cfg,
		out:    os.Stdout,
		run: func(name string, args ...string) (string, error) {
			out, err := exec.Command(name, args...).CombinedOutput()
			return strings.TrimSpace(string(out)), err
		},
	}
}

func (si *SystemInstaller) logf(format string, args ...interface{}) {
	if si.config.Verbose {
		fmt.Fprintf(si.out, "[INFO] "+format+"\n", args...)
	}
}

func (si *SystemInstaller) dryf(format string, args ...interface{}) {
	fmt.Fprintf(si.out, "[DRY-RUN] "+format+"\n", args...)
}

// IsRoot 检查是否以 root 权限运行
func (si *SystemInstaller) IsRoot() bool {
	if runtime.GOOS != "linux" {
		return false
	}
	currentUser, err := user.Current()
	return err == nil && currentUser.Uid == "0"
}

// CheckSystemd 检查系统是否支持 systemd
func (si *SystemInstaller) CheckSystemd() error {
	if runtime.GOOS != "linux" {
		return errors.New("此功能仅支持 Linux 系统")
	}
	if _, err := si.run("systemctl", "--version"); err != nil {
		return errors.New("系统不支持 systemd，请确保已安装 systemd 服务管理器")
	}
	return nil
}

// GenerateServiceFile 生成 systemd 服务文件内容
func (si *SystemInstaller) GenerateServiceFile() string {
	execStart := fmt.Sprintf("%s -c %s -w %s", si.config.BinaryPath, si.config.ConfigPath, si.config.WorkDir)

	return fmt.Sprintf(`[Unit]
Description=adfilter content filtering service
After=network-online.target
Wants=network-online.target

[Service]
Type=simple
ExecStart=%s
Restart=always
RestartSec=5
User=%s
WorkingDirectory=%s
StandardOutput=journal
StandardError=journal
SyslogIdentifier=%s

[Install]
WantedBy=multi-user.target
`, execStart, si.config.RunUser, si.config.WorkDir, ServiceName)
}

// createDirectories 创建配置与数据目录
func (si *SystemInstaller) createDirectories() error {
	for _, dir := range []string{filepath.Dir(si.config.ConfigPath), si.config.WorkDir} {
		if si.config.DryRun {
			si.dryf("将创建目录：%s", dir)
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("创建目录失败 %s: %w", dir, err)
		}
		si.logf("目录已就绪：%s", dir)
	}
	return nil
}

// generateDefaultConfig 配置文件不存在时写入默认配置
func (si *SystemInstaller) generateDefaultConfig() error {
	if _, err := os.Stat(si.config.ConfigPath); err == nil {
		si.logf("配置文件已存在：%s", si.config.ConfigPath)
		return nil
	}
	if si.config.DryRun {
		si.dryf("将创建默认配置文件：%s", si.config.ConfigPath)
		return nil
	}
	if err := config.CreateDefaultConfig(si.config.ConfigPath); err != nil {
		return fmt.Errorf("写入默认配置失败: %w", err)
	}
	si.logf("已生成默认配置：%s", si.config.ConfigPath)
	return nil
}

// copyBinary 复制当前可执行文件到安装路径
func (si *SystemInstaller) copyBinary() error {
	src, err := os.Executable()
	if err != nil {
		return fmt.Errorf("无法获取可执行文件路径: %w", err)
	}
	if src == si.config.BinaryPath {
		return nil
	}
	if si.config.DryRun {
		si.dryf("将复制二进制文件：%s -> %s", src, si.config.BinaryPath)
		return nil
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("读取二进制文件失败: %w", err)
	}
	if err := os.WriteFile(si.config.BinaryPath, data, 0o755); err != nil {
		return fmt.Errorf("写入二进制文件失败: %w", err)
	}
	return nil
}

func (si *SystemInstaller) writeServiceFile() error {
	content := si.GenerateServiceFile()
	if si.config.DryRun {
		si.dryf("将写入服务文件：%s", si.config.UnitPath)
		si.dryf("内容：\n%s", content)
		return nil
	}
	if err := os.WriteFile(si.config.UnitPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("写入服务文件失败: %w", err)
	}
	return nil
}

// systemctl 执行 systemctl 子命令，干运行时只打印
func (si *SystemInstaller) systemctl(args ...string) error {
	if si.config.DryRun {
		si.dryf("将执行：systemctl %s", strings.Join(args, " "))
		return nil
	}
	if out, err := si.run("systemctl", args...); err != nil {
		return fmt.Errorf("systemctl %s 失败: %v %s", strings.Join(args, " "), err, out)
	}
	return nil
}

// GetServiceStatus 返回 systemctl is-active 的结果
func (si *SystemInstaller) GetServiceStatus() (string, error) {
	return si.run("systemctl", "is-active", ServiceName)
}

// Install 执行安装流程
func (si *SystemInstaller) Install() error {
	fmt.Fprintln(si.out, "adfilter 服务安装程序")
	if si.config.DryRun {
		fmt.Fprintln(si.out, "[DRY-RUN 模式] 仅预览，不实际执行任何操作")
	}

	if !si.config.DryRun && !si.IsRoot() {
		return errors.New("安装需要 root 权限，请使用 sudo 运行")
	}
	if !si.config.DryRun {
		if err := si.CheckSystemd(); err != nil {
			return err
		}
	}

	steps := []func() error{
		si.createDirectories,
		si.generateDefaultConfig,
		si.copyBinary,
		si.writeServiceFile,
		func() error { return si.systemctl("daemon-reload") },
		func() error { return si.systemctl("enable", ServiceName) },
		func() error { return si.systemctl("start", ServiceName) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}

	fmt.Fprintln(si.out, "adfilter 已成功安装！")
	if !si.config.DryRun {
		status, _ := si.GetServiceStatus()
		fmt.Fprintf(si.out, "服务状态：%s\n配置文件：%s\n数据目录：%s\n", status, si.config.ConfigPath, si.config.WorkDir)
		fmt.Fprintf(si.out, "查看日志：sudo journalctl -u %s -f\n", ServiceName)
	}
	return nil
}

// Uninstall 执行卸载流程，保留配置和数据目录
func (si *SystemInstaller) Uninstall() error {
	fmt.Fprintln(si.out, "adfilter 服务卸载程序")
	if si.config.DryRun {
		fmt.Fprintln(si.out, "[DRY-RUN 模式] 仅预览，不实际执行任何操作")
	}

	if !si.config.DryRun && !si.IsRoot() {
		return errors.New("卸载需要 root 权限，请使用 sudo 运行")
	}

	if err := si.systemctl("stop", ServiceName); err != nil {
		fmt.Fprintf(si.out, "警告：停止服务失败：%v\n", err)
	}
	if err := si.systemctl("disable", ServiceName); err != nil {
		fmt.Fprintf(si.out, "警告：禁用服务失败：%v\n", err)
	}

	if si.config.DryRun {
		si.dryf("将删除服务文件：%s", si.config.UnitPath)
	} else if err := os.Remove(si.config.UnitPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("删除服务文件失败: %w", err)
	}

	if err := si.systemctl("daemon-reload"); err != nil {
		return err
	}

	fmt.Fprintf(si.out, "adfilter 已成功卸载，配置与数据保留在 %s 和 %s\n", filepath.Dir(si.config.ConfigPath), si.config.WorkDir)
	return nil
}

// Status 显示服务状态
func (si *SystemInstaller) Status() error {
	status, err := si.GetServiceStatus()
	if err != nil && status == "" {
		return errors.New("未能获取服务状态，服务可能未安装")
	}

	if status == "active" {
		fmt.Fprintf(si.out, "服务状态：%s (运行中)\n", status)
		if logs, err := si.run("journalctl", "-u", ServiceName, "-n", "10", "--no-pager"); err == nil {
			fmt.Fprintf(si.out, "\n最近日志：\n%s\n", logs)
		}
		return nil
	}

	fmt.Fprintf(si.out, "服务状态：%s (未运行)\n", status)
	fmt.Fprintf(si.out, "  服务未安装时请运行：sudo %s -s install\n", BinaryName)
	fmt.Fprintf(si.out, "  启动失败时查看日志：sudo journalctl -u %s\n", ServiceName)
	return nil
}
