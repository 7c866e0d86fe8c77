package config

// DefaultConfigContent 默认配置文件内容，包含详细说明
const DefaultConfigContent = `# adfilter 配置文件

# 广告拦截配置
adblock:
  # 首次启动时的拦截开关（之后以 settings 中保存的 adBlocker 为准），默认 true
  enable: true
  # 匹配引擎：substring（主机名子串匹配，默认）或 urlfilter（标准 Adblock Plus 域名锚定语义）
  engine: "substring"
  # 规则列表地址，支持 http(s):// 与 file:// 以及本地路径
  rule_urls:
    - "https://easylist.to/easylist/easylist.txt"
    - "https://easylist.to/easylist/easyprivacy.txt"
  # 规则缓存目录
  cache_dir: "./filterlists"
  # 自动刷新间隔（小时），0 表示只在手动触发时刷新
  update_interval_hours: 0
  # 单个列表下载超时（秒），默认 15
  download_timeout_sec: 15
  # 并发下载数，默认 5
  max_concurrent_downloads: 5
  # 按 URL 缓存匹配结果的条目数，0 表示关闭
  decision_cache_size: 4096
  # 最近拦截记录条数，默认 20
  recent_blocked_size: 20

# 用户设置持久化
settings:
  # bbolt 数据库文件
  file: "./settings.db"

# Web 控制接口
webui:
  # 是否启用（默认 true）
  enabled: true
  # 监听端口（默认 8080）
  listen_port: 8080

# 系统配置
system:
  # 日志级别：debug, info, warn, error
  log_level: "info"
`
