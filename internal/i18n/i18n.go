// Package i18n holds the operator-facing message catalog. Messages are keyed
// by their English text; other languages register translations at init.
package i18n

import (
	"os"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var supported = []language.Tag{language.English, language.Chinese}

var matcher = language.NewMatcher(supported)

var zh = map[string]string{
	"input error, please input again": "输入有误,请重新输入",
	"please select: ":                 "请选择: ",
	"please input domain: ":           "请输入域名: ",
	"Public IP":                       "公网IP",
	"Check port usage":                "检查端口占用",
	"Open profile ports in firewall":  "防火墙开放配置端口",
	"Clean firewall rules for a port": "清理端口防火墙规则",
	"Traffic statistics":              "流量统计",
	"Issue TLS certificate":           "申请TLS证书",
	"Show profile":                    "查看配置",
	"Supported stream types":          "支持的传输方式",
	"Exit":                            "退出",
	"port %d is in use":               "端口 %d 已被占用",
	"port %d is free":                 "端口 %d 未被占用",
	"no traffic recorded for port %d": "端口 %d 暂无流量数据",
	"opened ports: %v":                "已开放端口: %v",
	"all ports already open":          "所有端口均已开放",
	"removed %d rules for port %d":    "已删除端口 %[2]d 的 %[1]d 条规则",
	"certificate issued: %s":          "证书申请成功: %s",
	"port":                            "端口",
	"public ip: %s":                   "公网IP: %s",
	"warning: %v":                     "警告: %v",
	"no traffic recorded":             "暂无流量数据",
	"private key: %s":                 "私钥: %s",
	"config: %s (%s)":                 "配置文件: %s (%s)",
	"kcp headers: %s":                 "kcp伪装类型: %s",
	"ss methods: %s":                  "ss加密方式: %s",
	"please input port: ":             "请输入端口: ",
	"Current target":                  "当前主机",
	"Switch target":                   "切换主机",
	"press Enter to continue":         "按回车键继续",
	"SSH password for %s@%s: ":        "%[1]s@%[2]s 的SSH密码: ",
	"socks5 proxy on %s exits from %s, Ctrl-C to stop": "socks5代理 %s 经由 %s 出站, 按Ctrl-C停止",
	"Clean all firewall rules for port %d?":            "确认清理端口 %d 的全部防火墙规则?",
	"please select stream type: ":                      "请选择传输方式: ",
	"stream type: %s":                                  "传输方式: %s",
	"no extra settings for %s":                         "%s 无额外设置",
}

func init() {
	for key, msg := range zh {
		if err := message.SetString(language.Chinese, key, msg); err != nil {
			panic(err)
		}
	}
}

// Resolve picks a supported language for a tag such as "zh-CN", a POSIX
// locale such as "zh_CN.UTF-8", or "" (which falls back to LANG).
func Resolve(lang string) language.Tag {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		lang = os.Getenv("LANG")
	}
	if i := strings.IndexAny(lang, ".@"); i >= 0 {
		lang = lang[:i]
	}
	lang = strings.ReplaceAll(lang, "_", "-")
	if lang == "" || strings.EqualFold(lang, "C") || strings.EqualFold(lang, "POSIX") {
		return language.English
	}
	_, idx := language.MatchStrings(matcher, lang)
	return supported[idx]
}

func NewPrinter(lang string) *message.Printer {
	return message.NewPrinter(Resolve(lang))
}
