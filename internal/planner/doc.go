// Package planner 实现排课的核心规则：
//
//   - 课程目录（Catalog）在启动时加载一次，之后只读；
//   - 课表状态（Schedule）由 (星期, 时段) 网格上的条目组成，学分总数始终由
//     条目引用的不同课程推导，不单独存储；
//   - 放置前的约束校验（Rules）：单元格容量、同格重复、学分上限；
//   - 会话（Session）把本地状态与远端行存储保持一致，顺序固定为
//     校验 → 远端持久化 → 本地提交，远端失败时本地状态不变；
//   - 登录后由远端行重建课表（Reconstruct），无法解析的行被丢弃并记录。
package planner
